package episode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aiox-platform/concierge/internal/conversation"
)

// RedisStore keeps each episode as a JSON string and indexes it in a sorted
// set per actor+session, scored by CreatedAt in microseconds.
type RedisStore struct {
	client      redis.Cmdable
	prefix      string
	ttl         time.Duration
	maxEpisodes int64
}

type RedisOption func(*RedisStore)

// WithTTL sets the expiration applied to episodes and their index.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// WithPrefix namespaces all keys.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithMaxEpisodes bounds how many episodes the index keeps per session.
func WithMaxEpisodes(n int) RedisOption {
	return func(s *RedisStore) { s.maxEpisodes = int64(n) }
}

func NewRedisStore(client redis.Cmdable, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:      client,
		prefix:      "concierge",
		ttl:         30 * 24 * time.Hour,
		maxEpisodes: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scope encodes (actor, session) with length prefixes, so ids containing
// ":" cannot collide with another actor's keys.
func scope(actorID, sessionID string) string {
	return fmt.Sprintf("%d:%s:%d:%s", len(actorID), actorID, len(sessionID), sessionID)
}

func (s *RedisStore) episodeKey(actorID, sessionID, id string) string {
	return fmt.Sprintf("%s:episode:%s:%s", s.prefix, scope(actorID, sessionID), id)
}

func (s *RedisStore) indexKey(actorID, sessionID string) string {
	return fmt.Sprintf("%s:episodes:%s", s.prefix, scope(actorID, sessionID))
}

func (s *RedisStore) Put(ctx context.Context, ep *conversation.Episode) error {
	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("marshaling episode: %w", err)
	}

	key := s.episodeKey(ep.ActorID, ep.SessionID, ep.ID)
	idx := s.indexKey(ep.ActorID, ep.SessionID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.ZAdd(ctx, idx, redis.Z{Score: float64(ep.CreatedAt.UnixMicro()), Member: ep.ID})
	if s.maxEpisodes > 0 {
		pipe.ZRemRangeByRank(ctx, idx, 0, -(s.maxEpisodes + 1))
	}
	pipe.Expire(ctx, idx, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", idx, err)
	}
	return nil
}

func (s *RedisStore) QueryLatest(ctx context.Context, actorID, sessionID string) (*conversation.Episode, error) {
	idx := s.indexKey(actorID, sessionID)

	// A few candidates in case the newest record expired before its index entry.
	ids, err := s.client.ZRevRange(ctx, idx, 0, 4).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange %s: %w", idx, err)
	}

	for _, id := range ids {
		raw, err := s.client.Get(ctx, s.episodeKey(actorID, sessionID, id)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("getting episode %s: %w", id, err)
		}

		var ep conversation.Episode
		if err := json.Unmarshal(raw, &ep); err != nil {
			return nil, fmt.Errorf("unmarshaling episode %s: %w", id, err)
		}
		if ep.ActorID != actorID || ep.SessionID != sessionID {
			slog.Warn("skipping episode of another scope", "episode_id", id, "actor_id", actorID)
			continue
		}
		return &ep, nil
	}
	return nil, nil
}
