package episode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiox-platform/concierge/internal/conversation"
)

// PostgresStore implements Store on the episodes table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) Put(ctx context.Context, ep *conversation.Episode) error {
	id, err := uuid.Parse(ep.ID)
	if err != nil {
		return fmt.Errorf("parsing episode id: %w", err)
	}

	signals, err := json.Marshal(ep.Signals)
	if err != nil {
		return fmt.Errorf("marshaling signals: %w", err)
	}

	order, err := marshalOrder(ep.Order)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO episodes (id, actor_id, session_id, goal, outcome, topic, signals, domain, stage, order_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, ep.ActorID, ep.SessionID, ep.Goal, string(ep.Outcome), ep.Topic, signals,
		string(ep.Domain), string(ep.Stage), order, ep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting episode: %w", err)
	}
	return nil
}

func (r *PostgresStore) QueryLatest(ctx context.Context, actorID, sessionID string) (*conversation.Episode, error) {
	var (
		ep      conversation.Episode
		id      uuid.UUID
		outcome string
		domain  string
		stage   string
		signals []byte
		order   []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, actor_id, session_id, goal, outcome, topic, signals, domain, stage, order_ref, created_at
		 FROM episodes
		 WHERE actor_id = $1 AND session_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		actorID, sessionID,
	).Scan(&id, &ep.ActorID, &ep.SessionID, &ep.Goal, &outcome, &ep.Topic, &signals, &domain, &stage, &order, &ep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying latest episode: %w", err)
	}

	ep.ID = id.String()
	ep.Outcome = conversation.Outcome(outcome)
	ep.Domain = conversation.Domain(domain)
	ep.Stage = conversation.Stage(stage)
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &ep.Signals); err != nil {
			return nil, fmt.Errorf("unmarshaling signals: %w", err)
		}
	}
	if ep.Order, err = unmarshalOrder(order); err != nil {
		return nil, err
	}
	return &ep, nil
}

// marshalOrder returns nil for a nil order so the column stays NULL.
func marshalOrder(o *conversation.OrderRef) ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshaling order: %w", err)
	}
	return b, nil
}

func unmarshalOrder(b []byte) (*conversation.OrderRef, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var o conversation.OrderRef
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("unmarshaling order: %w", err)
	}
	return &o, nil
}
