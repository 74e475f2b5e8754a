package episode

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/conversation"
)

func setupMiniredis(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, opts...), mr
}

func newEpisode(actor, session, topic string, at time.Time) *conversation.Episode {
	return &conversation.Episode{
		ID:        uuid.NewString(),
		ActorID:   actor,
		SessionID: session,
		Goal:      "price of " + topic,
		Outcome:   conversation.OutcomeGoalCompleted,
		Topic:     topic,
		Signals:   map[string]bool{conversation.SignalSameTopic: true},
		Domain:    conversation.DomainFinance,
		CreatedAt: at,
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := setupMiniredis(t)
	ctx := context.Background()

	ep := newEpisode("actor-1", "session-1", "finance", time.Now().UTC())
	require.NoError(t, store.Put(ctx, ep))

	got, err := store.QueryLatest(ctx, "actor-1", "session-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ep.Goal, got.Goal)
	assert.Equal(t, ep.Outcome, got.Outcome)
	assert.Equal(t, ep.Topic, got.Topic)
	assert.True(t, got.Signals[conversation.SignalSameTopic])
	assert.Equal(t, conversation.DomainFinance, got.Domain)
}

func TestRedisStore_LatestByCreatedAt(t *testing.T) {
	store, _ := setupMiniredis(t)
	ctx := context.Background()
	base := time.Now().UTC()

	// Inserted out of order on purpose.
	require.NoError(t, store.Put(ctx, newEpisode("a", "s", "second", base.Add(2*time.Second))))
	require.NoError(t, store.Put(ctx, newEpisode("a", "s", "first", base)))
	require.NoError(t, store.Put(ctx, newEpisode("a", "s", "third", base.Add(3*time.Second))))

	got, err := store.QueryLatest(ctx, "a", "s")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "third", got.Topic)
}

func TestRedisStore_EmptyReturnsNil(t *testing.T) {
	store, _ := setupMiniredis(t)

	got, err := store.QueryLatest(context.Background(), "nobody", "nothing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_IsolatedByActorAndSession(t *testing.T) {
	store, _ := setupMiniredis(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Put(ctx, newEpisode("a1", "s1", "A1S1", now)))
	require.NoError(t, store.Put(ctx, newEpisode("a1", "s2", "A1S2", now)))
	require.NoError(t, store.Put(ctx, newEpisode("a2", "s1", "A2S1", now)))

	got, _ := store.QueryLatest(ctx, "a1", "s1")
	assert.Equal(t, "A1S1", got.Topic)
	got, _ = store.QueryLatest(ctx, "a1", "s2")
	assert.Equal(t, "A1S2", got.Topic)
	got, _ = store.QueryLatest(ctx, "a2", "s1")
	assert.Equal(t, "A2S1", got.Topic)
}

func TestRedisStore_SeparatorInIDsDoesNotLeak(t *testing.T) {
	store, mr := setupMiniredis(t)
	ctx := context.Background()

	private := newEpisode("alice:work", "s1", "private", time.Now().UTC())
	private.Goal = "alice private goal"
	require.NoError(t, store.Put(ctx, private))

	got, err := store.QueryLatest(ctx, "alice", "work:s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.QueryLatest(ctx, "alice:work", "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice private goal", got.Goal)

	t.Run("record of another scope is rejected", func(t *testing.T) {
		// Index entry under (bob, s1) pointing at a record written for someone else.
		foreign := newEpisode("mallory", "s1", "foreign", time.Now().UTC())
		raw := `{"id":"` + foreign.ID + `","actor_id":"mallory","session_id":"s1","topic":"foreign"}`
		require.NoError(t, mr.Set(store.episodeKey("bob", "s1", foreign.ID), raw))
		_, err := mr.ZAdd(store.indexKey("bob", "s1"), 1, foreign.ID)
		require.NoError(t, err)

		got, err := store.QueryLatest(ctx, "bob", "s1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupMiniredis(t, WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newEpisode("a", "s", "finance", time.Now().UTC())))
	mr.FastForward(61 * time.Second)

	got, err := store.QueryLatest(ctx, "a", "s")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_TrimsIndex(t *testing.T) {
	store, mr := setupMiniredis(t, WithMaxEpisodes(2), WithPrefix("test"))
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Put(ctx, newEpisode("a", "s", "t", base.Add(time.Duration(i)*time.Second))))
	}

	members, err := mr.ZMembers("test:episodes:1:a:1:s")
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestRedisStore_SkipsExpiredRecord(t *testing.T) {
	store, mr := setupMiniredis(t)
	ctx := context.Background()
	base := time.Now().UTC()

	older := newEpisode("a", "s", "older", base)
	newer := newEpisode("a", "s", "newer", base.Add(time.Second))
	require.NoError(t, store.Put(ctx, older))
	require.NoError(t, store.Put(ctx, newer))

	mr.Del(store.episodeKey("a", "s", newer.ID))

	got, err := store.QueryLatest(ctx, "a", "s")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "older", got.Topic)
}

func TestRedisStore_ErrorWhenUnreachable(t *testing.T) {
	store, mr := setupMiniredis(t)
	mr.Close()

	_, err := store.QueryLatest(context.Background(), "a", "s")
	assert.Error(t, err)
	assert.Error(t, store.Put(context.Background(), newEpisode("a", "s", "t", time.Now())))
}
