package orchestrator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/classifier"
	"github.com/aiox-platform/concierge/internal/conversation"
)

var (
	allDomains = []conversation.Domain{
		conversation.DomainNone, conversation.DomainFood, conversation.DomainFinance,
		conversation.DomainFootball, conversation.DomainGeneral,
	}
	allStages = []conversation.Stage{
		conversation.StageNone, conversation.StageStart, conversation.StageSelect, conversation.StageConfirm,
	}
)

func TestRules_ExactlyOneMatches(t *testing.T) {
	for _, d := range allDomains {
		for _, st := range allStages {
			for _, in := range classifier.Intents {
				for _, ev := range classifier.Events {
					x := Situation{Domain: d, Stage: st, Intent: in, Event: ev}
					names := Matching(x)
					require.Len(t, names, 1, "situation %+v matched %v", x, names)
				}
			}
		}
	}
}

func TestRules_OrderedNames(t *testing.T) {
	var names []string
	for _, r := range rules {
		names = append(names, r.name)
	}
	assert.Equal(t, []string{
		"cancel", "change_step", "smalltalk", "food_start", "food_select",
		"food_confirm", "finance", "football", "help", "clarify",
	}, names)
}

func TestRoute(t *testing.T) {
	tests := []struct {
		domain    conversation.Domain
		stage     conversation.Stage
		result    classifier.Result
		rule      string
		next      Next
		wantDom   conversation.Domain
		wantStage conversation.Stage
		text      string
	}{
		{
			conversation.DomainFood, conversation.StageSelect,
			classifier.Result{Intent: classifier.IntentFood, Event: classifier.EventCancel},
			"cancel", NextRespond, conversation.DomainNone, conversation.StageNone, conversation.CancelText,
		},
		{
			conversation.DomainFood, conversation.StageSelect,
			classifier.Result{Intent: classifier.IntentGeneral, Event: classifier.EventChangeStep},
			"change_step", NextDispatch, conversation.DomainFood, conversation.StageStart, "",
		},
		{
			conversation.DomainFinance, conversation.StageNone,
			classifier.Result{Intent: classifier.IntentFinance, Event: classifier.EventSmalltalk},
			"smalltalk", NextRespond, conversation.DomainFinance, conversation.StageNone, conversation.SmalltalkText,
		},
		{
			conversation.DomainNone, conversation.StageNone,
			classifier.Result{Intent: classifier.IntentFood, Event: classifier.EventNewTask},
			"food_start", NextDispatch, conversation.DomainFood, conversation.StageStart, "",
		},
		{
			conversation.DomainFood, conversation.StageConfirm,
			classifier.Result{Intent: classifier.IntentFood, Event: classifier.EventNewTask},
			"food_start", NextDispatch, conversation.DomainFood, conversation.StageStart, "",
		},
		{
			conversation.DomainFood, conversation.StageStart,
			classifier.Result{Intent: classifier.IntentFood, Event: classifier.EventProvideInfo},
			"food_select", NextDispatch, conversation.DomainFood, conversation.StageSelect, "",
		},
		{
			conversation.DomainFood, conversation.StageStart,
			classifier.Result{Intent: classifier.IntentFood, Event: classifier.EventCorrection},
			"food_select", NextDispatch, conversation.DomainFood, conversation.StageSelect, "",
		},
		{
			conversation.DomainFood, conversation.StageSelect,
			classifier.Result{Intent: classifier.IntentFood, Event: classifier.EventConfirm},
			"food_confirm", NextDispatch, conversation.DomainFood, conversation.StageConfirm, "",
		},
		{
			conversation.DomainFood, conversation.StageSelect,
			classifier.Result{Intent: classifier.IntentFinance, Event: classifier.EventNewTask, Symbol: "NVDA"},
			"finance", NextDispatch, conversation.DomainFinance, conversation.StageNone, "",
		},
		{
			conversation.DomainNone, conversation.StageNone,
			classifier.Result{Intent: classifier.IntentFootball, Event: classifier.EventHelp},
			"football", NextDispatch, conversation.DomainFootball, conversation.StageNone, "",
		},
		{
			conversation.DomainNone, conversation.StageNone,
			classifier.Result{Intent: classifier.IntentGeneral, Event: classifier.EventHelp},
			"help", NextRespond, conversation.DomainNone, conversation.StageNone, conversation.HelpText,
		},
		{
			conversation.DomainNone, conversation.StageNone,
			classifier.Result{Intent: classifier.IntentGeneral, Event: classifier.EventOther},
			"clarify", NextRespond, conversation.DomainNone, conversation.StageNone, conversation.ClarifyText,
		},
		{
			conversation.DomainFinance, conversation.StageNone,
			classifier.Result{Intent: classifier.IntentGeneral, Event: classifier.EventChangeStep},
			"clarify", NextRespond, conversation.DomainFinance, conversation.StageNone, conversation.ClarifyText,
		},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s/%s/%s/%s", tt.domain, tt.stage, tt.result.Intent, tt.result.Event)
		t.Run(name, func(t *testing.T) {
			s := conversation.NewState("a", "s", "utterance")
			s.Domain, s.Stage = tt.domain, tt.stage

			d := Route(s, tt.result)

			assert.Equal(t, tt.rule, d.Rule)
			assert.Equal(t, tt.next, d.Next)
			assert.Equal(t, tt.text, d.Text)
			assert.Equal(t, tt.wantDom, s.Domain)
			assert.Equal(t, tt.wantStage, s.Stage)
		})
	}
}

func TestRoute_CarriesEntities(t *testing.T) {
	s := conversation.NewState("a", "s", "buy 2 lasagnas at Cantina")
	s.Domain, s.Stage = conversation.DomainFood, conversation.StageStart

	Route(s, classifier.Result{
		Intent:       classifier.IntentFood,
		Event:        classifier.EventProvideInfo,
		Goal:         "order lasagna",
		Topic:        "food",
		RestaurantID: "r1",
		Items:        []conversation.OrderItem{{Name: "Lasagna", Quantity: 2}},
	})

	assert.Equal(t, "order lasagna", s.Goal)
	assert.Equal(t, "food", s.Topic)
	assert.Equal(t, "r1", s.RestaurantID)
	assert.Len(t, s.Items, 1)
}

func TestRoute_RespondNowKeepsTopic(t *testing.T) {
	s := conversation.NewState("a", "s", "thanks!")
	Route(s, classifier.Result{Intent: classifier.IntentGeneral, Event: classifier.EventSmalltalk, Topic: "general"})
	assert.Equal(t, "general", s.Topic)
}
