package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/config"
	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/episode"
	"github.com/aiox-platform/concierge/internal/llm"
)

type cannedModel struct{ reply string }

func (m cannedModel) Generate(context.Context, string, llm.GenerateOptions) (string, error) {
	return m.reply, nil
}

func (cannedModel) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	t.Run("redis", func(t *testing.T) {
		s, closer, err := OpenStore(config.EpisodeConfig{Backend: "redis", TTL: time.Hour}, nil, rdb)
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.IsType(t, &episode.RedisStore{}, s)
	})

	t.Run("duckdb in memory", func(t *testing.T) {
		s, closer, err := OpenStore(config.EpisodeConfig{Backend: "duckdb"}, nil, nil)
		require.NoError(t, err)
		require.NotNil(t, closer)
		t.Cleanup(func() { closer() })
		assert.IsType(t, &episode.DuckDBStore{}, s)
	})

	t.Run("postgres without pool", func(t *testing.T) {
		_, _, err := OpenStore(config.EpisodeConfig{Backend: "postgres"}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("redis without client", func(t *testing.T) {
		_, _, err := OpenStore(config.EpisodeConfig{Backend: "redis"}, nil, nil)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := OpenStore(config.EpisodeConfig{Backend: "cassandra"}, nil, nil)
		assert.ErrorContains(t, err, "cassandra")
	})
}

func TestBuild_SmalltalkTurn(t *testing.T) {
	cfg := &config.Config{
		Episode:   config.EpisodeConfig{Backend: "duckdb"},
		Providers: config.ProvidersConfig{Timeout: time.Second, FoodTarget: "food-api"},
		Turn:      config.TurnConfig{Timeout: 5 * time.Second},
	}

	st, err := Build(context.Background(), cfg, Options{
		Model: cannedModel{reply: `{"intent":"GENERAL","event":"SMALLTALK","topic":"greeting"}`},
	})
	require.NoError(t, err)
	t.Cleanup(st.Close)

	res, err := st.Engine.HandleTurn(context.Background(), "alice", "s1", "hello!")
	require.NoError(t, err)
	assert.Equal(t, conversation.DomainNone, res.State.Domain)
	require.NotNil(t, res.Episode)

	latest, err := st.Store.QueryLatest(context.Background(), "alice", "s1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "greeting", latest.Topic)
}
