package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/aiox-platform/concierge/internal/conversation"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishTurnRequest publishes an utterance for engine processing.
func (p *Publisher) PublishTurnRequest(ctx context.Context, req TurnRequest) error {
	return p.publish(ctx, SubjectTurnInbound, req, jetstream.WithMsgID(req.ID))
}

// PublishTurnReply publishes a rendered reply for delivery.
func (p *Publisher) PublishTurnReply(ctx context.Context, reply TurnReply) error {
	return p.publish(ctx, SubjectTurnOutbound, reply, jetstream.WithMsgID(reply.ID))
}

// PublishEpisode announces a persisted episode.
func (p *Publisher) PublishEpisode(ctx context.Context, ep *conversation.Episode) error {
	return p.publish(ctx, SubjectEpisodeEvent, NewEpisodeEvent(ep))
}

// PublishAuditEvent publishes an audit event.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event AuditEvent) error {
	return p.publish(ctx, SubjectAuditEvent, event)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any, opts ...jetstream.PublishOpt) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload, opts...)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// NewEpisodeEvent flattens an episode for the events stream.
func NewEpisodeEvent(ep *conversation.Episode) EpisodeEvent {
	return EpisodeEvent{
		EpisodeID: ep.ID,
		ActorID:   ep.ActorID,
		SessionID: ep.SessionID,
		Topic:     ep.Topic,
		Outcome:   string(ep.Outcome),
		Domain:    string(ep.Domain),
		Stage:     string(ep.Stage),
		SameTopic: ep.Signals[conversation.SignalSameTopic],
		CreatedAt: ep.CreatedAt,
	}
}
