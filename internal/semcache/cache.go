// Package semcache stores finance answers keyed by question embedding so
// that near-duplicate questions can be answered without new provider calls.
package semcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/aiox-platform/concierge/internal/llm"
	"github.com/aiox-platform/concierge/internal/metrics"
)

// DefaultThreshold is the minimum cosine similarity for a hit.
const DefaultThreshold = 0.7

// Cache is the semantic cache port.
type Cache interface {
	Put(ctx context.Context, question, answer string) error
	Get(ctx context.Context, question string) (string, bool, error)
}

// PGVector implements Cache on the semantic_cache table.
type PGVector struct {
	pool      *pgxpool.Pool
	embedder  llm.Embedder
	threshold float64
}

func NewPGVector(pool *pgxpool.Pool, embedder llm.Embedder, threshold float64) *PGVector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &PGVector{pool: pool, embedder: embedder, threshold: threshold}
}

func (c *PGVector) Put(ctx context.Context, question, answer string) error {
	emb, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return fmt.Errorf("embedding question: %w", err)
	}

	_, err = c.pool.Exec(ctx,
		`INSERT INTO semantic_cache (id, question, answer, embedding)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), question, answer, pgvector.NewVector(emb),
	)
	if err != nil {
		return fmt.Errorf("inserting cache entry: %w", err)
	}
	metrics.SemanticCacheTotal.WithLabelValues("put").Inc()
	return nil
}

func (c *PGVector) Get(ctx context.Context, question string) (string, bool, error) {
	emb, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return "", false, fmt.Errorf("embedding question: %w", err)
	}

	vec := pgvector.NewVector(emb)
	var answer string
	err = c.pool.QueryRow(ctx,
		`SELECT answer
		 FROM semantic_cache
		 WHERE 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT 1`,
		vec, c.threshold,
	).Scan(&answer)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.SemanticCacheTotal.WithLabelValues("miss").Inc()
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("searching cache: %w", err)
	}
	metrics.SemanticCacheTotal.WithLabelValues("hit").Inc()
	return answer, true, nil
}

// DeleteOlderThan removes entries created before now-age.
func (c *PGVector) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := c.pool.Exec(ctx,
		`DELETE FROM semantic_cache WHERE created_at < $1`,
		time.Now().Add(-age),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
