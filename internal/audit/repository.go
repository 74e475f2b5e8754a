package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles turn_audit PostgreSQL operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a single audit entry.
func (r *Repository) Insert(ctx context.Context, a *TurnAudit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	details := a.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO turn_audit (id, actor_id, session_id, event_type, severity, episode_id, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ActorID, a.SessionID, a.EventType, a.Severity, a.EpisodeID, details, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting turn audit: %w", err)
	}
	return nil
}

// ListByActor returns paginated audit entries of an actor, newest first.
func (r *Repository) ListByActor(ctx context.Context, actorID string, params ListParams) ([]TurnAudit, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	conditions := []string{"actor_id = $1"}
	args := []any{actorID}
	argIdx := 2

	for _, f := range []struct{ column, value string }{
		{"session_id", params.SessionID},
		{"event_type", params.EventType},
		{"severity", params.Severity},
	} {
		if f.value == "" {
			continue
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", f.column, argIdx))
		args = append(args, f.value)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM turn_audit WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting turn audit: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(
		`SELECT id, actor_id, session_id, event_type, severity, episode_id, details, created_at
		 FROM turn_audit WHERE %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying turn audit: %w", err)
	}
	defer rows.Close()

	var entries []TurnAudit
	for rows.Next() {
		var a TurnAudit
		if err := rows.Scan(&a.ID, &a.ActorID, &a.SessionID, &a.EventType, &a.Severity,
			&a.EpisodeID, &a.Details, &a.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning turn audit: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, total, rows.Err()
}
