package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/llm"
)

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func TestClassifier_Classify(t *testing.T) {
	gen := &stubGenerator{reply: `{"intent":"FINANCE","event":"NEW_TASK","symbol":"NVDA","topic":"finance"}`}
	c := New(gen, llm.GenerateOptions{Temperature: 0.7})

	s := conversation.NewState("a", "s", "how is nvidia doing?")
	got := c.Classify(context.Background(), s)

	assert.Equal(t, IntentFinance, got.Intent)
	assert.Equal(t, EventNewTask, got.Event)
	assert.Equal(t, "NVDA", got.Symbol)
	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "how is nvidia doing?")
}

func TestClassifier_GeneratorErrorDegrades(t *testing.T) {
	c := New(&stubGenerator{err: errors.New("quota exceeded")}, llm.GenerateOptions{})

	got := c.Classify(context.Background(), conversation.NewState("a", "s", "hi"))
	assert.Equal(t, EventOther, got.Event)
	assert.Equal(t, IntentGeneral, got.Intent)
}

func TestClassifier_MalformedDegrades(t *testing.T) {
	c := New(&stubGenerator{reply: "no idea, sorry"}, llm.GenerateOptions{})

	got := c.Classify(context.Background(), conversation.NewState("a", "s", "hmm"))
	assert.Equal(t, EventOther, got.Event)
	assert.Equal(t, "no idea, sorry", got.Raw)
}

func TestBuildPrompt_IncludesContinuity(t *testing.T) {
	s := conversation.NewState("a", "s", "and tomorrow?")
	s.Resume(&conversation.Episode{
		Goal:    "Flamengo news",
		Topic:   "football",
		Outcome: conversation.OutcomeGoalCompleted,
		Domain:  conversation.DomainFootball,
	})

	prompt := BuildPrompt(s)
	assert.Contains(t, prompt, "previous goal: Flamengo news")
	assert.Contains(t, prompt, "previous topic: football")
	assert.Contains(t, prompt, "current domain: football")
	assert.NotContains(t, prompt, "current stage")
}
