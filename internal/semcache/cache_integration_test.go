//go:build integration

package semcache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/concierge/internal/database/dbtest"
)

// wordEmbedder maps a few known words onto fixed axes.
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 3)
	t := strings.ToLower(text)
	if strings.Contains(t, "nvda") || strings.Contains(t, "nvidia") {
		v[0] = 1
	}
	if strings.Contains(t, "price") {
		v[1] = 0.3
	}
	if strings.Contains(t, "weather") {
		v[2] = 1
	}
	return v, nil
}

func TestPGVector_PutGet(t *testing.T) {
	pool := dbtest.NewPool(t)
	c := NewPGVector(pool, wordEmbedder{}, 0)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "NVDA price", "NVDA trades at 110 USD"))

	answer, ok, err := c.Get(ctx, "nvidia price today")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "NVDA trades at 110 USD", answer)

	_, ok, err = c.Get(ctx, "weather tomorrow")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.DeleteOlderThan(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
