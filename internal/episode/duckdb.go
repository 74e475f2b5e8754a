package episode

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/aiox-platform/concierge/internal/conversation"
)

// DuckDBStore is an embedded episode store for the local CLI.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore opens (or creates) the database at path. An empty path
// opens an in-memory database.
func NewDuckDBStore(path string) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	s := &DuckDBStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing duckdb: %w", err)
	}
	return s, nil
}

func (s *DuckDBStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS episodes (
			id VARCHAR PRIMARY KEY,
			actor_id VARCHAR NOT NULL,
			session_id VARCHAR NOT NULL,
			goal VARCHAR,
			outcome VARCHAR NOT NULL,
			topic VARCHAR,
			signals VARCHAR,
			domain VARCHAR,
			stage VARCHAR,
			order_ref VARCHAR,
			created_at TIMESTAMPTZ NOT NULL
		);
		ALTER TABLE episodes ADD COLUMN IF NOT EXISTS order_ref VARCHAR;
		CREATE INDEX IF NOT EXISTS idx_episodes_actor_session ON episodes (actor_id, session_id);
	`)
	return err
}

func (s *DuckDBStore) Put(ctx context.Context, ep *conversation.Episode) error {
	signals, err := json.Marshal(ep.Signals)
	if err != nil {
		return fmt.Errorf("marshaling signals: %w", err)
	}

	order, err := marshalOrder(ep.Order)
	if err != nil {
		return err
	}
	var orderCol sql.NullString
	if order != nil {
		orderCol = sql.NullString{String: string(order), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO episodes (id, actor_id, session_id, goal, outcome, topic, signals, domain, stage, order_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.ID, ep.ActorID, ep.SessionID, ep.Goal, string(ep.Outcome), ep.Topic, string(signals),
		string(ep.Domain), string(ep.Stage), orderCol, ep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting episode: %w", err)
	}
	return nil
}

func (s *DuckDBStore) QueryLatest(ctx context.Context, actorID, sessionID string) (*conversation.Episode, error) {
	var (
		ep                     conversation.Episode
		goal, topic            sql.NullString
		signals, domain, stage sql.NullString
		order                  sql.NullString
		outcome                string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, actor_id, session_id, goal, outcome, topic, signals, domain, stage, order_ref, created_at
		 FROM episodes
		 WHERE actor_id = ? AND session_id = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		actorID, sessionID,
	).Scan(&ep.ID, &ep.ActorID, &ep.SessionID, &goal, &outcome, &topic, &signals, &domain, &stage, &order, &ep.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying latest episode: %w", err)
	}

	ep.Goal = goal.String
	ep.Topic = topic.String
	ep.Outcome = conversation.Outcome(outcome)
	ep.Domain = conversation.Domain(domain.String)
	ep.Stage = conversation.Stage(stage.String)
	if signals.Valid && signals.String != "" && signals.String != "null" {
		if err := json.Unmarshal([]byte(signals.String), &ep.Signals); err != nil {
			return nil, fmt.Errorf("unmarshaling signals: %w", err)
		}
	}
	if ep.Order, err = unmarshalOrder([]byte(order.String)); err != nil {
		return nil, err
	}
	return &ep, nil
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}
