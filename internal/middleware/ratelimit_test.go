package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimiter(t *testing.T, maxReqs, windowSec int, opts ...RateLimitOption) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := NewRateLimiter(client, maxReqs, windowSec, opts...)
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})), mr
}

func send(h http.Handler, remote, actor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turns", nil)
	req.RemoteAddr = remote
	if actor != "" {
		req.Header.Set("X-Actor-ID", actor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	h, _ := setupRateLimiter(t, 5, 60)

	for i := 0; i < 5; i++ {
		rec := send(h, "192.168.1.1:12345", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	h, _ := setupRateLimiter(t, 3, 60)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, send(h, "10.0.0.1:12345", "").Code)
	}

	rec := send(h, "10.0.0.1:12345", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too many requests"}`, rec.Body.String())
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	h, _ := setupRateLimiter(t, 2, 60)

	send(h, "1.1.1.1:1", "")
	send(h, "1.1.1.1:1", "")

	assert.Equal(t, http.StatusOK, send(h, "2.2.2.2:1", "").Code)
}

func TestRateLimiter_KeyedPerActor(t *testing.T) {
	byActor := WithKeyFunc(func(r *http.Request) string { return r.Header.Get("X-Actor-ID") })
	h, mr := setupRateLimiter(t, 1, 60, byActor)

	require.Equal(t, http.StatusOK, send(h, "1.1.1.1:1", "alice").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(h, "2.2.2.2:1", "alice").Code)
	assert.Equal(t, http.StatusOK, send(h, "1.1.1.1:1", "bob").Code)
	assert.True(t, mr.Exists("ratelimit:turns:alice"))

	// no actor falls back to the client IP
	assert.Equal(t, http.StatusOK, send(h, "3.3.3.3:1", "").Code)
	assert.True(t, mr.Exists("ratelimit:turns:3.3.3.3"))
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	h, mr := setupRateLimiter(t, 1, 60)
	mr.Close()

	assert.Equal(t, http.StatusOK, send(h, "3.3.3.3:1", "").Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "5.5.5.5, 10.0.0.1"}, "9.9.9.9:1", "5.5.5.5"},
		{"real ip", map[string]string{"X-Real-IP": "6.6.6.6"}, "9.9.9.9:1", "6.6.6.6"},
		{"remote addr", nil, "9.9.9.9:1", "9.9.9.9"},
		{"remote without port", nil, "9.9.9.9", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
