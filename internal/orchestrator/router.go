package orchestrator

import (
	"github.com/aiox-platform/concierge/internal/classifier"
	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/metrics"
)

// Next tells the engine where a turn goes after routing.
type Next int

const (
	// NextDispatch runs the stage dispatcher before rendering.
	NextDispatch Next = iota
	// NextRespond renders Decision.Text straight away.
	NextRespond
)

// Decision is the outcome of routing one classified turn.
type Decision struct {
	Next Next
	Rule string
	Text string
}

// Situation is everything a rule guard may look at.
type Situation struct {
	Domain conversation.Domain
	Stage  conversation.Stage
	Intent classifier.Intent
	Event  classifier.Event
}

type rule struct {
	name  string
	match func(Situation) bool
	apply func(*conversation.State, classifier.Result) Decision
}

// control reports whether an event is handled by a control rule regardless of intent.
func control(x Situation) bool {
	return x.Event == classifier.EventCancel ||
		x.Event == classifier.EventSmalltalk ||
		(x.Event == classifier.EventChangeStep && x.Domain == conversation.DomainFood)
}

func foodEntry(x Situation) bool {
	return x.Stage == conversation.StageNone || x.Event == classifier.EventNewTask
}

func isFood(x Situation) bool { return !control(x) && x.Intent == classifier.IntentFood }

// rules is evaluated in order. Every guard excludes the guards above it, so
// at most one rule can match and the last one catches everything else.
var rules = []rule{
	{
		name:  "cancel",
		match: func(x Situation) bool { return x.Event == classifier.EventCancel },
		apply: func(s *conversation.State, _ classifier.Result) Decision {
			s.Reset()
			return respond("cancel", conversation.CancelText)
		},
	},
	{
		name: "change_step",
		match: func(x Situation) bool {
			return x.Event == classifier.EventChangeStep && x.Domain == conversation.DomainFood
		},
		apply: func(s *conversation.State, r classifier.Result) Decision {
			s.Stage = conversation.StageStart
			carry(s, r)
			return toDispatch("change_step")
		},
	},
	{
		name:  "smalltalk",
		match: func(x Situation) bool { return x.Event == classifier.EventSmalltalk },
		apply: func(_ *conversation.State, _ classifier.Result) Decision {
			return respond("smalltalk", conversation.SmalltalkText)
		},
	},
	{
		name:  "food_start",
		match: func(x Situation) bool { return isFood(x) && foodEntry(x) },
		apply: func(s *conversation.State, r classifier.Result) Decision {
			s.Domain, s.Stage = conversation.DomainFood, conversation.StageStart
			carry(s, r)
			return toDispatch("food_start")
		},
	},
	{
		name: "food_select",
		match: func(x Situation) bool {
			return isFood(x) && !foodEntry(x) && x.Stage == conversation.StageStart &&
				(x.Event == classifier.EventProvideInfo || x.Event == classifier.EventCorrection)
		},
		apply: func(s *conversation.State, r classifier.Result) Decision {
			s.Domain, s.Stage = conversation.DomainFood, conversation.StageSelect
			carry(s, r)
			return toDispatch("food_select")
		},
	},
	{
		name: "food_confirm",
		match: func(x Situation) bool {
			return isFood(x) && !foodEntry(x) && x.Event == classifier.EventConfirm
		},
		apply: func(s *conversation.State, r classifier.Result) Decision {
			s.Domain, s.Stage = conversation.DomainFood, conversation.StageConfirm
			carry(s, r)
			return toDispatch("food_confirm")
		},
	},
	{
		name:  "finance",
		match: func(x Situation) bool { return !control(x) && x.Intent == classifier.IntentFinance },
		apply: func(s *conversation.State, r classifier.Result) Decision {
			s.Domain, s.Stage = conversation.DomainFinance, conversation.StageNone
			carry(s, r)
			return toDispatch("finance")
		},
	},
	{
		name:  "football",
		match: func(x Situation) bool { return !control(x) && x.Intent == classifier.IntentFootball },
		apply: func(s *conversation.State, r classifier.Result) Decision {
			s.Domain, s.Stage = conversation.DomainFootball, conversation.StageNone
			carry(s, r)
			return toDispatch("football")
		},
	},
	{
		name: "help",
		match: func(x Situation) bool {
			return x.Event == classifier.EventHelp && !handled(x)
		},
		apply: func(_ *conversation.State, _ classifier.Result) Decision {
			return respond("help", conversation.HelpText)
		},
	},
	{
		name:  "clarify",
		match: func(x Situation) bool { return x.Event != classifier.EventHelp && !handled(x) },
		apply: func(_ *conversation.State, _ classifier.Result) Decision {
			return respond("clarify", conversation.ClarifyText)
		},
	},
}

// handled reports whether one of the control or domain rules accepts x.
func handled(x Situation) bool {
	if control(x) {
		return true
	}
	switch x.Intent {
	case classifier.IntentFinance, classifier.IntentFootball:
		return true
	case classifier.IntentFood:
		return foodEntry(x) ||
			x.Event == classifier.EventConfirm ||
			(x.Stage == conversation.StageStart &&
				(x.Event == classifier.EventProvideInfo || x.Event == classifier.EventCorrection))
	}
	return false
}

func respond(name, text string) Decision {
	return Decision{Next: NextRespond, Rule: name, Text: text}
}

func toDispatch(name string) Decision {
	return Decision{Next: NextDispatch, Rule: name}
}

// carry copies the extracted entities a dispatcher branch needs.
func carry(s *conversation.State, r classifier.Result) {
	s.Symbol = r.Symbol
	if r.RestaurantID != "" {
		s.RestaurantID = r.RestaurantID
	}
	if len(r.Items) > 0 {
		s.Items = r.Items
	}
}

// Matching returns the names of every rule whose guard accepts x.
func Matching(x Situation) []string {
	var names []string
	for _, r := range rules {
		if r.match(x) {
			names = append(names, r.name)
		}
	}
	return names
}

// Route applies the first matching rule to s. Goal and topic are recorded
// for every turn so the episode reflects what was asked.
func Route(s *conversation.State, r classifier.Result) Decision {
	x := Situation{Domain: s.Domain, Stage: s.Stage, Intent: r.Intent, Event: r.Event}

	for _, rl := range rules {
		if !rl.match(x) {
			continue
		}
		s.Goal, s.Topic = r.Goal, r.Topic
		d := rl.apply(s, r)
		metrics.RouteDecisionsTotal.WithLabelValues(d.Rule).Inc()
		return d
	}

	// Unreachable: clarify matches whenever nothing above does.
	return respond("clarify", conversation.ClarifyText)
}
