package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/conversation"
	inats "github.com/aiox-platform/concierge/internal/nats"
	"github.com/aiox-platform/concierge/internal/providers/quote"
)

type fakeTurns struct {
	result *TurnResult
	err    error
}

func (f *fakeTurns) HandleTurn(context.Context, string, string, string) (*TurnResult, error) {
	return f.result, f.err
}

type capturePublisher struct {
	replies []inats.TurnReply
	audits  []inats.AuditEvent
}

func (p *capturePublisher) PublishTurnReply(_ context.Context, r inats.TurnReply) error {
	p.replies = append(p.replies, r)
	return nil
}

func (p *capturePublisher) PublishAuditEvent(_ context.Context, e inats.AuditEvent) error {
	p.audits = append(p.audits, e)
	return nil
}

func TestOrchestrator_Process(t *testing.T) {
	req := inats.TurnRequest{
		ID: "req-1", ActorID: "alice@example.com", SessionID: "thread-1", Prompt: "NVDA?",
		Channel: inats.ChannelXMPP, ReplyTo: "alice@example.com/phone", ReplyFrom: "concierge.example.com",
	}

	t.Run("completed turn", func(t *testing.T) {
		s := conversation.NewState("alice@example.com", "thread-1", "NVDA?")
		s.Domain = conversation.DomainFinance
		turns := &fakeTurns{result: &TurnResult{
			Response: "NVDA is at 110 USD",
			Episode:  &conversation.Episode{ID: "ep-1", Outcome: conversation.OutcomeGoalCompleted},
			State:    s,
		}}
		pub := &capturePublisher{}

		NewOrchestrator(pub, nil, NewValidator(), turns).Process(context.Background(), req)

		require.Len(t, pub.replies, 1)
		reply := pub.replies[0]
		assert.Equal(t, "req-1", reply.InReplyTo)
		assert.Equal(t, "NVDA is at 110 USD", reply.Response)
		assert.Equal(t, "ep-1", reply.EpisodeID)
		assert.Equal(t, "alice@example.com/phone", reply.ReplyTo)
		assert.Equal(t, "concierge.example.com", reply.ReplyFrom)

		require.Len(t, pub.audits, 1)
		assert.Equal(t, "turn_completed", pub.audits[0].EventType)
		assert.Equal(t, "info", pub.audits[0].Severity)
		assert.Equal(t, "ep-1", pub.audits[0].EpisodeID)
	})

	t.Run("failed turn is audited as warn", func(t *testing.T) {
		s := conversation.NewState("a", "s", "x")
		s.Fail(errors.New("quote provider down"))
		turns := &fakeTurns{result: &TurnResult{Response: conversation.ApologyText, State: s}}
		pub := &capturePublisher{}

		NewOrchestrator(pub, nil, NewValidator(), turns).Process(context.Background(), req)

		assert.Equal(t, conversation.ApologyText, pub.replies[0].Response)
		assert.Equal(t, "warn", pub.audits[0].Severity)
	})

	t.Run("aborted turn hides internal error", func(t *testing.T) {
		turns := &fakeTurns{err: errors.New("redis: connection refused")}
		pub := &capturePublisher{}

		NewOrchestrator(pub, nil, NewValidator(), turns).Process(context.Background(), req)

		assert.NotContains(t, pub.replies[0].Response, "redis")
		assert.Equal(t, "turn_aborted", pub.audits[0].EventType)
		assert.Equal(t, "error", pub.audits[0].Severity)
		assert.Equal(t, "kind=internal", pub.audits[0].Details)
	})

	t.Run("provider failure is audited without error text", func(t *testing.T) {
		s := conversation.NewState("a", "s", "x")
		s.Fail(&conversation.ExternalProviderError{
			Provider: "food.order",
			Err:      errors.New(`Post "http://10.0.3.7:8080/tools/simulate_order": dial tcp 10.0.3.7:8080: connection refused`),
		})
		turns := &fakeTurns{result: &TurnResult{Response: conversation.ApologyText, State: s}}
		pub := &capturePublisher{}

		NewOrchestrator(pub, nil, NewValidator(), turns).Process(context.Background(), req)

		details := pub.audits[0].Details
		assert.Equal(t, "provider=food.order kind=upstream", details)
		assert.NotContains(t, details, "10.0.3.7")
		assert.NotContains(t, details, "connection refused")
	})
}

func TestAuditDetails(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"provider timeout", &conversation.ExternalProviderError{
			Provider: "finance.quote", Err: fmt.Errorf("GET https://query1.example/v8: %w", context.DeadlineExceeded),
		}, "provider=finance.quote kind=timeout"},
		{"unknown symbol", &conversation.ExternalProviderError{
			Provider: "finance.quote", Err: fmt.Errorf("ZZZZ: %w", quote.ErrSymbolNotFound),
		}, "provider=finance.quote kind=not_found"},
		{"upstream", &conversation.ExternalProviderError{
			Provider: "news.football", Err: errors.New("status 502 from feeds.example"),
		}, "provider=news.football kind=upstream"},
		{"continuity", &conversation.ContinuityLoadError{Err: errors.New("redis 10.0.0.2:6379 refused")}, "kind=continuity"},
		{"empty utterance", ErrEmptyUtterance, "kind=empty_utterance"},
		{"cancelled", context.Canceled, "kind=canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auditDetails(tt.err))
		})
	}
}
