package episode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/conversation"
)

func setupDuckDB(t *testing.T) *DuckDBStore {
	t.Helper()
	store, err := NewDuckDBStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestDuckDBStore_RoundTrip(t *testing.T) {
	store := setupDuckDB(t)
	ctx := context.Background()

	ep := newEpisode("actor-1", "session-1", "finance", time.Now().UTC())
	ep.Stage = conversation.StageSelect
	require.NoError(t, store.Put(ctx, ep))

	got, err := store.QueryLatest(ctx, "actor-1", "session-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ep.ID, got.ID)
	assert.Equal(t, ep.Goal, got.Goal)
	assert.Equal(t, ep.Outcome, got.Outcome)
	assert.Equal(t, ep.Topic, got.Topic)
	assert.Equal(t, conversation.StageSelect, got.Stage)
	assert.True(t, got.Signals[conversation.SignalSameTopic])
	assert.Nil(t, got.Order)
}

func TestDuckDBStore_KeepsSimulatedOrder(t *testing.T) {
	store := setupDuckDB(t)
	ctx := context.Background()

	ep := newEpisode("actor-1", "session-1", "food", time.Now().UTC())
	ep.Domain, ep.Stage = conversation.DomainFood, conversation.StageSelect
	ep.Order = &conversation.OrderRef{RestaurantID: "r1", RestaurantName: "Cantina", Total: 102.5, Currency: "BRL"}
	require.NoError(t, store.Put(ctx, ep))

	got, err := store.QueryLatest(ctx, "actor-1", "session-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ep.Order, got.Order)
	assert.True(t, got.Confirmable())
}

func TestDuckDBStore_Latest(t *testing.T) {
	store := setupDuckDB(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.Put(ctx, newEpisode("a", "s", "newest", base.Add(time.Minute))))
	require.NoError(t, store.Put(ctx, newEpisode("a", "s", "oldest", base)))
	require.NoError(t, store.Put(ctx, newEpisode("a", "other", "elsewhere", base.Add(time.Hour))))

	got, err := store.QueryLatest(ctx, "a", "s")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "newest", got.Topic)
}

func TestDuckDBStore_EmptyReturnsNil(t *testing.T) {
	store := setupDuckDB(t)

	got, err := store.QueryLatest(context.Background(), "a", "s")
	require.NoError(t, err)
	assert.Nil(t, got)
}
