package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aiox-platform/concierge/internal/api"
	"github.com/aiox-platform/concierge/internal/auth"
)

// TurnResponse is the HTTP reply for one turn.
type TurnResponse struct {
	Response  string `json:"response"`
	ActorID   string `json:"actor_id"`
	SessionID string `json:"session_id"`
	EpisodeID string `json:"episode_id,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
}

// Handler serves POST /api/v1/turns and its /agent alias.
type Handler struct {
	engine    TurnHandler
	validator *Validator
}

func NewHandler(engine TurnHandler, validator *Validator) *Handler {
	return &Handler{engine: engine, validator: validator}
}

func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	var in TurnInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&in); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid request body"))
		return
	}

	if actor := auth.ActorID(r.Context()); actor != "" {
		if in.ActorID != "" && in.ActorID != actor {
			api.HandleError(w, api.ErrActorMismatch)
			return
		}
		in.ActorID = actor
	}

	if err := h.validator.ValidateInput(&in); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	res, err := h.engine.HandleTurn(r.Context(), in.ActorID, in.SessionID, in.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyUtterance):
			api.HandleError(w, api.NewValidationError(err.Error()))
		case errors.Is(err, context.DeadlineExceeded):
			api.HandleError(w, api.ErrTurnTimeout)
		default:
			slog.Error("handling turn", "error", err, "actor_id", in.ActorID, "session_id", in.SessionID)
			api.HandleError(w, api.ErrInternalServer)
		}
		return
	}

	out := TurnResponse{
		Response:  res.Response,
		ActorID:   in.ActorID,
		SessionID: in.SessionID,
	}
	if res.Episode != nil {
		out.EpisodeID = res.Episode.ID
		out.Outcome = string(res.Episode.Outcome)
	}
	api.JSONRaw(w, http.StatusOK, out)
}
