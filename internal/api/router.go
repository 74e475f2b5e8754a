package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/aiox-platform/concierge/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	Turn          http.HandlerFunc
	LatestEpisode http.HandlerFunc
	ListAudit     http.HandlerFunc

	// AuthMiddleware is nil when JWT auth is disabled.
	AuthMiddleware func(http.Handler) http.Handler
}

type RouterConfig struct {
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	TurnRateLimiter    func(http.Handler) http.Handler
	Readiness          Readiness
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(mw.CORS(mw.CORSPolicy{Origins: cfg.CORSAllowedOrigins, AllowCredentials: cfg.CORSAllowCredentials}))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	r.Get("/health/ready", cfg.Readiness.Handler)
	r.Get("/health", cfg.Readiness.Handler)

	r.Handle("/metrics", promhttp.Handler())

	authed := func(r chi.Router) {
		if h.AuthMiddleware != nil {
			r.Use(h.AuthMiddleware)
		}
	}

	turns := func(r chi.Router) {
		authed(r)
		if cfg.TurnRateLimiter != nil {
			r.Use(cfg.TurnRateLimiter)
		}
	}

	// The local agent endpoint is an alias of POST /api/v1/turns.
	r.Group(func(r chi.Router) {
		turns(r)
		r.Post("/agent", h.Turn)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			turns(r)
			r.Post("/turns", h.Turn)
		})

		r.Group(func(r chi.Router) {
			authed(r)
			r.Get("/sessions/{sessionID}/episodes/latest", h.LatestEpisode)
			if h.ListAudit != nil {
				r.Get("/audit", h.ListAudit)
			}
		})
	})

	return r
}
