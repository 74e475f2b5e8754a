package episode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/concierge/internal/conversation"
)

// EventPublisher announces persisted episodes to other services.
type EventPublisher interface {
	PublishEpisode(ctx context.Context, ep *conversation.Episode) error
}

// Writer turns a finished State into a persisted Episode.
type Writer struct {
	store  Store
	events EventPublisher
	now    func() time.Time
}

func NewWriter(store Store, events EventPublisher) *Writer {
	return &Writer{store: store, events: events, now: time.Now}
}

// Write infers the outcome, computes the sameTopic signal and persists the
// episode. It must only run after the renderer finished.
func (w *Writer) Write(ctx context.Context, s *conversation.State) (*conversation.Episode, error) {
	if conversation.SameTopic(s.LastEpisode, s.Topic) {
		s.Signals[conversation.SignalSameTopic] = true
	}

	signals := make(map[string]bool, len(s.Signals))
	for k, v := range s.Signals {
		signals[k] = v
	}

	ep := &conversation.Episode{
		ID:        uuid.NewString(),
		ActorID:   s.ActorID,
		SessionID: s.SessionID,
		Goal:      s.Goal,
		Outcome:   conversation.InferOutcome(s),
		Topic:     s.Topic,
		Signals:   signals,
		Domain:    s.Domain,
		Stage:     s.Stage,
		Order:     s.Order,
		CreatedAt: w.createdAt(s.LastEpisode),
	}

	if err := w.store.Put(ctx, ep); err != nil {
		return nil, fmt.Errorf("persisting episode: %w", err)
	}

	if w.events != nil {
		if err := w.events.PublishEpisode(ctx, ep); err != nil {
			slog.Error("publishing episode event", "error", err, "episode_id", ep.ID)
		}
	}

	return ep, nil
}

// createdAt keeps CreatedAt strictly increasing within a session even if the
// wall clock steps backwards.
func (w *Writer) createdAt(last *conversation.Episode) time.Time {
	now := w.now().UTC()
	if last != nil && !now.After(last.CreatedAt) {
		return last.CreatedAt.Add(time.Microsecond)
	}
	return now
}
