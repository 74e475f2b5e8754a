package conversation

import "time"

// Outcome summarizes how a turn ended.
type Outcome string

const (
	OutcomeGoalCompleted Outcome = "goal_completed"
	OutcomeFailed        Outcome = "failed"
	OutcomeUnknown       Outcome = "unknown"
)

// OrderRef identifies the order simulated in a food select turn, so a later
// confirm refers to what the user actually saw.
type OrderRef struct {
	RestaurantID   string  `json:"restaurant_id"`
	RestaurantName string  `json:"restaurant_name,omitempty"`
	Total          float64 `json:"total"`
	Currency       string  `json:"currency"`
}

// Episode is the durable record of one completed turn. It is written once
// and never mutated.
type Episode struct {
	ID        string          `json:"id"`
	ActorID   string          `json:"actor_id"`
	SessionID string          `json:"session_id"`
	Goal      string          `json:"goal,omitempty"`
	Outcome   Outcome         `json:"outcome"`
	Topic     string          `json:"topic,omitempty"`
	Signals   map[string]bool `json:"signals,omitempty"`
	Domain    Domain          `json:"domain,omitempty"`
	Stage     Stage           `json:"stage,omitempty"`
	Order     *OrderRef       `json:"order,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Confirmable reports whether e is a successful food select turn with a
// simulated order.
func (e *Episode) Confirmable() bool {
	return e != nil && e.Domain == DomainFood && e.Stage == StageSelect &&
		e.Outcome == OutcomeGoalCompleted && e.Order != nil
}

// InferOutcome derives the outcome of a finished turn.
func InferOutcome(s *State) Outcome {
	switch {
	case s.Err != nil:
		return OutcomeFailed
	case s.FinalResponse != "":
		return OutcomeGoalCompleted
	default:
		return OutcomeUnknown
	}
}
