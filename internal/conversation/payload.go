package conversation

// Variant selects the renderer that turns a payload into the final reply.
type Variant string

const (
	VariantGeneric  Variant = "generic"
	VariantFood     Variant = "food"
	VariantFinance  Variant = "finance"
	VariantFootball Variant = "football"
)

type PayloadKind int

const (
	PayloadEmpty PayloadKind = iota
	PayloadText
	PayloadData
)

// Payload is either ready-made text or a structured value to be rendered.
type Payload struct {
	Kind    PayloadKind
	Text    string
	Data    any
	Variant Variant
}

func TextPayload(v Variant, text string) Payload {
	return Payload{Kind: PayloadText, Text: text, Variant: v}
}

func DataPayload(v Variant, data any) Payload {
	return Payload{Kind: PayloadData, Data: data, Variant: v}
}

func (p Payload) IsText() bool { return p.Kind == PayloadText }
