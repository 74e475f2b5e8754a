package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	inats "github.com/aiox-platform/concierge/internal/nats"
)

// TurnAudit matches the turn_audit table schema.
type TurnAudit struct {
	ID        uuid.UUID       `json:"id"`
	ActorID   string          `json:"actor_id"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	Severity  string          `json:"severity"`
	EpisodeID *uuid.UUID      `json:"episode_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit queries.
type ListParams struct {
	SessionID string
	EventType string
	Severity  string
	Page      int
	PageSize  int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

// FromEvent converts a NATS audit event into a row. A non-uuid episode id is dropped.
func FromEvent(event inats.AuditEvent) *TurnAudit {
	a := &TurnAudit{
		ID:        uuid.New(),
		ActorID:   event.ActorID,
		SessionID: event.SessionID,
		EventType: event.EventType,
		Severity:  event.Severity,
		CreatedAt: event.Timestamp,
	}

	if event.EpisodeID != "" {
		if parsed, err := uuid.Parse(event.EpisodeID); err == nil {
			a.EpisodeID = &parsed
		}
	}

	if data, err := json.Marshal(map[string]string{"message": event.Details}); err == nil {
		a.Details = data
	}
	return a
}
