package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/aiox-platform/concierge/internal/nats"
)

// Inserter persists audit rows.
type Inserter interface {
	Insert(ctx context.Context, a *TurnAudit) error
}

// Consumer listens on the audit event NATS subject and persists entries to the database.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new audit event Consumer.
func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, "audit-persister", inats.SubjectAuditEvent)
	if err != nil {
		return err
	}
	return inats.Consume(ctx, consumer, "audit-persister", func(ctx context.Context, msg jetstream.Msg) {
		if err := c.handle(ctx, msg.Data()); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
}

func (c *Consumer) handle(ctx context.Context, data []byte) error {
	var event inats.AuditEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("audit consumer: unmarshaling event", "error", err)
		return err
	}

	if err := c.repo.Insert(ctx, FromEvent(event)); err != nil {
		slog.Error("audit consumer: persisting turn audit", "error", err, "event_type", event.EventType)
		return err
	}

	slog.Debug("audit consumer: persisted event",
		"event_type", event.EventType,
		"actor_id", event.ActorID,
		"episode_id", event.EpisodeID,
	)
	return nil
}
