package classifier

import "github.com/aiox-platform/concierge/internal/conversation"

// Intent is the task domain the utterance asks for.
type Intent string

const (
	IntentFood     Intent = "FOOD"
	IntentFinance  Intent = "FINANCE"
	IntentFootball Intent = "FOOTBALL"
	IntentGeneral  Intent = "GENERAL"
)

// Intents lists every intent, in declaration order.
var Intents = []Intent{IntentFood, IntentFinance, IntentFootball, IntentGeneral}

// Event is the conversational act the utterance performs.
type Event string

const (
	EventNewTask     Event = "NEW_TASK"
	EventProvideInfo Event = "PROVIDE_INFO"
	EventChangeStep  Event = "CHANGE_STEP"
	EventCancel      Event = "CANCEL"
	EventCorrection  Event = "CORRECTION"
	EventHelp        Event = "HELP"
	EventSmalltalk   Event = "SMALLTALK"
	EventConfirm     Event = "CONFIRM"
	EventOther       Event = "OTHER"
)

// Events lists every event, in declaration order.
var Events = []Event{
	EventNewTask, EventProvideInfo, EventChangeStep, EventCancel, EventCorrection,
	EventHelp, EventSmalltalk, EventConfirm, EventOther,
}

// Result is one classification. Raw keeps the model output for logging.
type Result struct {
	Intent       Intent
	Event        Event
	Goal         string
	Topic        string
	Symbol       string
	RestaurantID string
	Items        []conversation.OrderItem
	Raw          string
}

// Degraded is the result used when the model output cannot be understood.
func Degraded(raw string) Result {
	return Result{Intent: IntentGeneral, Event: EventOther, Raw: raw}
}
