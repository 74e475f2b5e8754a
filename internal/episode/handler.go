package episode

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aiox-platform/concierge/internal/api"
	"github.com/aiox-platform/concierge/internal/auth"
	"github.com/aiox-platform/concierge/internal/conversation"
)

type LatestQuerier interface {
	QueryLatest(ctx context.Context, actorID, sessionID string) (*conversation.Episode, error)
}

// Handler exposes the latest episode of a session.
type Handler struct {
	store LatestQuerier
}

func NewHandler(store LatestQuerier) *Handler {
	return &Handler{store: store}
}

// Latest serves GET /api/v1/sessions/{sessionID}/episodes/latest. The actor
// is the authenticated one, or the actor_id query parameter without auth.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	actorID := auth.ActorID(r.Context())
	if actorID == "" {
		actorID = r.URL.Query().Get("actor_id")
	}
	if actorID == "" {
		api.HandleError(w, api.NewBadRequestError("actor_id is required"))
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	ep, err := h.store.QueryLatest(r.Context(), actorID, sessionID)
	if err != nil {
		slog.Error("querying latest episode", "error", err, "actor_id", actorID, "session_id", sessionID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if ep == nil {
		api.HandleError(w, api.NewNotFoundError("no episodes for session"))
		return
	}

	api.JSON(w, http.StatusOK, ep)
}
