package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck() error { return s.err }

func TestReadiness_Check(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	t.Run("unset members are not configured", func(t *testing.T) {
		health, ok := Readiness{Redis: client}.Check(context.Background())
		assert.True(t, ok)
		assert.Equal(t, "healthy", health["redis"])
		assert.Equal(t, "not configured", health["database"])
		assert.Equal(t, "not configured", health["xmpp"])
	})

	t.Run("disconnected component degrades", func(t *testing.T) {
		rd := Readiness{Redis: client, XMPP: stubChecker{err: errors.New("down")}}
		health, ok := rd.Check(context.Background())
		assert.False(t, ok)
		assert.Equal(t, "degraded", health["status"])
		assert.Equal(t, "unhealthy", health["xmpp"])
	})

	t.Run("redis down", func(t *testing.T) {
		dead := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
		t.Cleanup(func() { dead.Close() })
		_, ok := Readiness{Redis: dead}.Check(context.Background())
		assert.False(t, ok)
	})
}

func TestReadiness_Handler(t *testing.T) {
	rec := httptest.NewRecorder()
	Readiness{XMPP: stubChecker{err: errors.New("down")}}.Handler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"xmpp":"unhealthy"`)

	rec = httptest.NewRecorder()
	Readiness{}.Handler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
