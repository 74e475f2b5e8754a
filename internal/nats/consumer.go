package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	defaultAckWait    = 30 * time.Second
	defaultMaxDeliver = 5
	fetchBatch        = 10
)

// ConsumerManager creates the durable pull consumers of the turn and event streams.
type ConsumerManager struct {
	js jetstream.JetStream
}

func NewConsumerManager(js jetstream.JetStream) *ConsumerManager {
	return &ConsumerManager{js: js}
}

// ConsumerOption tweaks a durable consumer before it is created.
type ConsumerOption func(*jetstream.ConsumerConfig)

// WithAckWait sets how long a fetched message may stay unacked before redelivery.
// Turn consumers should allow at least one full turn.
func WithAckWait(d time.Duration) ConsumerOption {
	return func(c *jetstream.ConsumerConfig) { c.AckWait = d }
}

// WithMaxDeliver caps redeliveries of a nakked message.
func WithMaxDeliver(n int) ConsumerOption {
	return func(c *jetstream.ConsumerConfig) { c.MaxDeliver = n }
}

// EnsureConsumer creates or updates a durable consumer filtered on one subject.
func (cm *ConsumerManager) EnsureConsumer(ctx context.Context, stream, name, filterSubject string, opts ...ConsumerOption) (jetstream.Consumer, error) {
	cfg := jetstream.ConsumerConfig{
		Durable:       name,
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       defaultAckWait,
		MaxDeliver:    defaultMaxDeliver,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	consumer, err := cm.js.CreateOrUpdateConsumer(ctx, stream, cfg)
	if err != nil {
		return nil, fmt.Errorf("ensuring consumer %s on %s: %w", name, stream, err)
	}
	return consumer, nil
}

// MsgHandler processes one fetched message and is responsible for acking it.
type MsgHandler func(ctx context.Context, msg jetstream.Msg)

// Consume pulls batches from consumer and hands each message to handle in
// order until ctx is done. Messages of a batch are never processed concurrently.
func Consume(ctx context.Context, consumer jetstream.Consumer, name string, handle MsgHandler) error {
	slog.Info("nats consumer started", "consumer", name)

	for {
		msgs, err := consumer.Fetch(fetchBatch, jetstream.FetchMaxWait(FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("fetching messages", "consumer", name, "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			handle(ctx, msg)
		}
		if err := msgs.Error(); err != nil && ctx.Err() == nil {
			slog.Debug("fetch batch ended", "consumer", name, "error", err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
