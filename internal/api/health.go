package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aiox-platform/concierge/internal/database"
	inats "github.com/aiox-platform/concierge/internal/nats"
	iredis "github.com/aiox-platform/concierge/internal/redis"
)

// HealthChecker is a connection that can report its own state.
type HealthChecker interface {
	HealthCheck() error
}

// Readiness checks the backing services. Nil members report "not configured".
type Readiness struct {
	Pool  *pgxpool.Pool
	Redis redis.Cmdable
	NATS  *inats.Client
	XMPP  HealthChecker
}

// Check reports per-dependency health and whether all configured ones are up.
func (rd Readiness) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	health := map[string]string{
		"status":   "healthy",
		"database": "not configured",
		"redis":    "not configured",
		"nats":     "not configured",
		"xmpp":     "not configured",
	}
	ok := true
	mark := func(name string, err error) {
		if err != nil {
			health[name] = "unhealthy"
			health["status"] = "degraded"
			ok = false
			return
		}
		health[name] = "healthy"
	}

	if rd.Pool != nil {
		mark("database", database.HealthCheck(ctx, rd.Pool))
	}
	if rd.Redis != nil {
		mark("redis", iredis.HealthCheck(ctx, rd.Redis))
	}
	if rd.NATS != nil {
		mark("nats", rd.NATS.HealthCheck())
	}
	if rd.XMPP != nil {
		mark("xmpp", rd.XMPP.HealthCheck())
	}

	return health, ok
}

func (rd Readiness) Handler(w http.ResponseWriter, r *http.Request) {
	health, ok := rd.Check(r.Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	JSON(w, status, health)
}
