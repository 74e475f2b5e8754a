package nats

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/conversation"
)

func TestNewEpisodeEvent(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ep := &conversation.Episode{
		ID:        "ep-1",
		ActorID:   "alice",
		SessionID: "s1",
		Topic:     "finance",
		Outcome:   conversation.OutcomeGoalCompleted,
		Domain:    conversation.DomainFinance,
		Signals:   map[string]bool{conversation.SignalSameTopic: true},
		CreatedAt: created,
	}

	ev := NewEpisodeEvent(ep)

	assert.Equal(t, "ep-1", ev.EpisodeID)
	assert.Equal(t, "alice", ev.ActorID)
	assert.Equal(t, "goal_completed", ev.Outcome)
	assert.Equal(t, "finance", ev.Domain)
	assert.True(t, ev.SameTopic)
	assert.Equal(t, created, ev.CreatedAt)

	t.Run("missing signals map", func(t *testing.T) {
		ev := NewEpisodeEvent(&conversation.Episode{ID: "ep-2"})
		assert.False(t, ev.SameTopic)
	})
}

func TestStreams(t *testing.T) {
	streams := Streams()
	require.Len(t, streams, 2)

	turns := streams[0]
	assert.Equal(t, StreamTurns, turns.Name)
	assert.Equal(t, jetstream.WorkQueuePolicy, turns.Retention)
	assert.ElementsMatch(t, []string{SubjectTurnInbound, SubjectTurnOutbound}, turns.Subjects)
	assert.Equal(t, dedupWindow, turns.Duplicates)

	events := streams[1]
	assert.Equal(t, StreamEvents, events.Name)
	assert.Equal(t, jetstream.LimitsPolicy, events.Retention)
	assert.Contains(t, events.Subjects, SubjectAuditEvent)
}
