package episode

import (
	"context"

	"github.com/aiox-platform/concierge/internal/conversation"
)

// Store persists episodes per actor and session.
//
// QueryLatest returns the most recent episode by CreatedAt, or nil with a
// nil error when the session has none.
type Store interface {
	Put(ctx context.Context, ep *conversation.Episode) error
	QueryLatest(ctx context.Context, actorID, sessionID string) (*conversation.Episode, error)
}
