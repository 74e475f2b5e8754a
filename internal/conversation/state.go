package conversation

import "strings"

// Role tags a message inside a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Domain is the task category a turn belongs to.
type Domain string

const (
	DomainNone     Domain = "none"
	DomainFood     Domain = "food"
	DomainFinance  Domain = "finance"
	DomainFootball Domain = "football"
	DomainGeneral  Domain = "general"
)

// Stage is the position inside a domain's sub-flow. StageNone means not yet entered.
type Stage string

const (
	StageNone    Stage = ""
	StageStart   Stage = "start"
	StageSelect  Stage = "select"
	StageConfirm Stage = "confirm"
)

// SignalSameTopic is set when the turn's topic matches the previous episode's topic.
const SignalSameTopic = "sameTopic"

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// OrderItem is a cart line extracted from the utterance for the food select stage.
type OrderItem struct {
	ItemID    string  `json:"item_id" mapstructure:"item_id"`
	Name      string  `json:"name" mapstructure:"name"`
	UnitPrice float64 `json:"unit_price" mapstructure:"unit_price"`
	Quantity  int     `json:"quantity" mapstructure:"quantity"`
}

// State is the mutable record threaded through a single turn. It is built
// fresh for every turn and discarded once the episode has been written.
type State struct {
	Messages  []Message
	ActorID   string
	SessionID string

	Domain Domain
	Stage  Stage

	Goal         string
	Topic        string
	Symbol       string
	RestaurantID string
	Items        []OrderItem
	// Order is set by the food select and confirm branches.
	Order *OrderRef

	Payload       Payload
	FinalResponse string
	Err           error

	LastEpisode *Episode
	Signals     map[string]bool
}

// NewState starts a turn for the given utterance.
func NewState(actorID, sessionID, utterance string) *State {
	return &State{
		Messages:  []Message{{Role: RoleUser, Content: utterance}},
		ActorID:   actorID,
		SessionID: sessionID,
		Domain:    DomainNone,
		Stage:     StageNone,
		Signals:   make(map[string]bool),
	}
}

// Append adds a message to the turn transcript.
func (s *State) Append(role Role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content})
}

// UserInput returns the most recent user utterance.
func (s *State) UserInput() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Resume seeds domain and stage from the previous episode so multi-turn
// sub-flows survive between turns.
func (s *State) Resume(last *Episode) {
	s.LastEpisode = last
	if last == nil {
		return
	}
	if last.Domain != "" {
		s.Domain = last.Domain
	}
	s.Stage = last.Stage
}

// Reset moves the conversation back to neutral.
func (s *State) Reset() {
	s.Domain = DomainNone
	s.Stage = StageNone
}

// Fail records an internal failure. The error never reaches FinalResponse.
func (s *State) Fail(err error) {
	s.Err = err
	s.Payload = TextPayload(VariantGeneric, ApologyText)
}

// SameTopic reports whether topic matches the previous episode's topic, ignoring case.
func SameTopic(last *Episode, topic string) bool {
	if last == nil {
		return false
	}
	a := strings.TrimSpace(last.Topic)
	b := strings.TrimSpace(topic)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
