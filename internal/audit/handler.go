package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aiox-platform/concierge/internal/api"
	"github.com/aiox-platform/concierge/internal/auth"
)

type Lister interface {
	ListByActor(ctx context.Context, actorID string, params ListParams) ([]TurnAudit, int64, error)
}

// Handler serves GET /api/v1/audit.
type Handler struct {
	repo Lister
}

func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List returns the caller's audit entries, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actorID := auth.ActorID(r.Context())
	if actorID == "" {
		actorID = r.URL.Query().Get("actor_id")
	}
	if actorID == "" {
		api.HandleError(w, api.NewBadRequestError("actor_id is required"))
		return
	}

	params := parseListParams(r)
	entries, total, err := h.repo.ListByActor(r.Context(), actorID, params)
	if err != nil {
		slog.Error("listing turn audit", "error", err, "actor_id", actorID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if entries == nil {
		entries = []TurnAudit{}
	}

	api.JSONPaginated(w, http.StatusOK, entries, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()
	q := r.URL.Query()

	params.SessionID = q.Get("session_id")
	params.EventType = q.Get("event_type")
	params.Severity = q.Get("severity")
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		params.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil && size > 0 && size <= 100 {
		params.PageSize = size
	}
	return params
}
