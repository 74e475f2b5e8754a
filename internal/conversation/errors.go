package conversation

import "fmt"

// User-facing texts. Internal error detail never appears in any of them.
const (
	ApologyText       = "I apologize, but I encountered an error processing your request. Please try again."
	EmptyResponseText = "I apologize, but I couldn't generate a response. Please try again."
	CancelText        = "Okay, I've cancelled that. What would you like to do next?"
	SmalltalkText     = "Happy to chat! Let me know whenever you need a stock quote, football news or something to eat."
	HelpText          = "I can help with:\n" +
		"- Finance: live stock quotes and market news (e.g. \"how is NVDA doing?\")\n" +
		"- Football: the latest news about teams and competitions\n" +
		"- Food: restaurants near you, menus and order totals\n" +
		"Say \"cancel\" at any time to start over."
	PickOrderText = "Which restaurant would you like to order from, and which items? Tell me the dishes and quantities."
	ClarifyText   = "I'm not sure I understood. Could you tell me whether you need finance, football or food help?"
)

// ClassificationParseError means the classifier output held no usable JSON object.
type ClassificationParseError struct {
	Raw string
	Err error
}

func (e *ClassificationParseError) Error() string {
	return fmt.Sprintf("parsing classification: %v", e.Err)
}

func (e *ClassificationParseError) Unwrap() error { return e.Err }

// UnroutableStateError means no dispatcher branch exists for the domain and stage.
type UnroutableStateError struct {
	Domain Domain
	Stage  Stage
	Event  string
}

func (e *UnroutableStateError) Error() string {
	return fmt.Sprintf("unroutable state: domain=%q stage=%q event=%q", e.Domain, e.Stage, e.Event)
}

// ExternalProviderError wraps any tool, store or generation failure.
type ExternalProviderError struct {
	Provider string
	Err      error
}

func (e *ExternalProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ExternalProviderError) Unwrap() error { return e.Err }

// ContinuityLoadError means the previous episode could not be read.
type ContinuityLoadError struct {
	Err error
}

func (e *ContinuityLoadError) Error() string {
	return fmt.Sprintf("loading continuity: %v", e.Err)
}

func (e *ContinuityLoadError) Unwrap() error { return e.Err }
