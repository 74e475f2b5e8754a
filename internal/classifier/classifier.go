package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/llm"
)

const instructions = `You classify one message sent to a personal assistant that handles
finance (stock quotes, market news), football news and food ordering.

Return ONLY a JSON object with these keys:
  "intent": one of FOOD, FINANCE, FOOTBALL, GENERAL
  "event":  one of NEW_TASK, PROVIDE_INFO, CHANGE_STEP, CANCEL, CORRECTION, HELP, SMALLTALK, CONFIRM, OTHER
  "goal":   short description of what the user wants (search query for news)
  "topic":  one lowercase word naming the subject area (finance, football, food, general)
  "symbol": stock ticker for finance requests, e.g. "NVDA", otherwise ""
  "restaurant_id": restaurant the user picked, otherwise ""
  "items": list of {"item_id", "name", "unit_price", "quantity"} the user wants to order, otherwise []

Event guide:
  NEW_TASK      the user starts a new request
  PROVIDE_INFO  the user answers a question or adds details to the current request
  CHANGE_STEP   the user wants to go back and pick something else
  CANCEL        the user gives up on the current request
  CORRECTION    the user fixes something said before
  HELP          the user asks what the assistant can do
  SMALLTALK     greetings, thanks, chit-chat
  CONFIRM       the user approves the proposed order or action
  OTHER         anything else`

// Classifier issues one classification request per turn.
type Classifier struct {
	gen  llm.Generator
	opts llm.GenerateOptions
}

func New(gen llm.Generator, opts llm.GenerateOptions) *Classifier {
	return &Classifier{gen: gen, opts: opts}
}

// Classify never fails the turn: generation and parse failures both yield
// the degraded result.
func (c *Classifier) Classify(ctx context.Context, s *conversation.State) Result {
	raw, err := c.gen.Generate(ctx, BuildPrompt(s), c.opts)
	if err != nil {
		slog.Warn("classification request failed, degrading to OTHER",
			"error", &conversation.ExternalProviderError{Provider: "classifier", Err: err},
			"actor_id", s.ActorID,
		)
		return Degraded("")
	}

	result, err := Parse(raw)
	if err != nil {
		slog.Warn("classification output unparseable, degrading to OTHER", "error", err, "raw", raw)
	}
	return result
}

// BuildPrompt renders the fixed instructions with the turn's context.
func BuildPrompt(s *conversation.State) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nConversation context:\n")
	fmt.Fprintf(&b, "  current domain: %s\n", s.Domain)
	if s.Stage != conversation.StageNone {
		fmt.Fprintf(&b, "  current stage: %s\n", s.Stage)
	}
	if last := s.LastEpisode; last != nil {
		fmt.Fprintf(&b, "  previous goal: %s\n", last.Goal)
		fmt.Fprintf(&b, "  previous topic: %s\n", last.Topic)
		fmt.Fprintf(&b, "  previous outcome: %s\n", last.Outcome)
	}
	fmt.Fprintf(&b, "\nMessage:\n%s\n", s.UserInput())
	return b.String()
}
