package episode

import (
	"context"
	"log/slog"
	"time"

	"github.com/aiox-platform/concierge/internal/conversation"
)

// Loader reads the previous episode before a turn is classified. Continuity
// is optional: any store failure is logged and treated as "no episode".
type Loader struct {
	store   Store
	timeout time.Duration
}

func NewLoader(store Store, timeout time.Duration) *Loader {
	return &Loader{store: store, timeout: timeout}
}

func (l *Loader) Load(ctx context.Context, actorID, sessionID string) *conversation.Episode {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	ep, err := l.store.QueryLatest(ctx, actorID, sessionID)
	if err != nil {
		loadErr := &conversation.ContinuityLoadError{Err: err}
		slog.Warn("continuity unavailable, continuing without last episode",
			"error", loadErr,
			"actor_id", actorID,
			"session_id", sessionID,
		)
		return nil
	}
	return ep
}
