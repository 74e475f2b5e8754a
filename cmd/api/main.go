package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/aiox-platform/concierge/internal/api"
	"github.com/aiox-platform/concierge/internal/app"
	"github.com/aiox-platform/concierge/internal/audit"
	"github.com/aiox-platform/concierge/internal/auth"
	"github.com/aiox-platform/concierge/internal/config"
	"github.com/aiox-platform/concierge/internal/database"
	"github.com/aiox-platform/concierge/internal/episode"
	"github.com/aiox-platform/concierge/internal/logging"
	mw "github.com/aiox-platform/concierge/internal/middleware"
	inats "github.com/aiox-platform/concierge/internal/nats"
	"github.com/aiox-platform/concierge/internal/orchestrator"
	iredis "github.com/aiox-platform/concierge/internal/redis"
	"github.com/aiox-platform/concierge/internal/server"
	ixmpp "github.com/aiox-platform/concierge/internal/xmpp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("concierge stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// PostgreSQL backs audit, the semantic cache and optionally episodes.
	var pool *pgxpool.Pool
	if needsPostgres(cfg) {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			return err
		}
		p, err := database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer p.Close()
		pool = p
	}

	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var (
		natsClient *inats.Client
		publisher  *inats.Publisher
		consumers  *inats.ConsumerManager
		events     episode.EventPublisher
	)
	if cfg.NATS.Enabled {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			return err
		}
		defer natsClient.Close()
		publisher = inats.NewPublisher(natsClient.JetStream())
		consumers = inats.NewConsumerManager(natsClient.JetStream())
		events = publisher
	}

	stack, err := app.Build(ctx, cfg, app.Options{Pool: pool, Redis: redisClient, Events: events})
	if err != nil {
		return err
	}
	defer stack.Close()

	validator := orchestrator.NewValidator()
	readiness := api.Readiness{Pool: pool, Redis: redisClient, NATS: natsClient}

	g, gctx := errgroup.WithContext(ctx)

	handlers := api.HandlerSet{
		Turn:          orchestrator.NewHandler(stack.Engine, validator).Turn,
		LatestEpisode: episode.NewHandler(stack.Store).Latest,
	}
	if cfg.JWT.Enabled {
		handlers.AuthMiddleware = auth.Middleware(auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry))
	}

	if pool != nil {
		auditRepo := audit.NewRepository(pool)
		handlers.ListAudit = audit.NewHandler(auditRepo).List
		if consumers != nil {
			g.Go(func() error { return audit.NewConsumer(auditRepo, consumers).Start(gctx) })
		}
	}

	if publisher != nil {
		orch := orchestrator.NewOrchestrator(publisher, consumers, validator, stack.Engine)
		orch.SetAckWait(cfg.Turn.Timeout + 30*time.Second)
		g.Go(func() error { return orch.Start(gctx) })
	}

	if cfg.XMPP.Enabled && publisher != nil {
		handler := ixmpp.NewHandler(publisher)
		comp, err := ixmpp.NewComponent(cfg.XMPP, handler)
		if err != nil {
			return err
		}
		relay := ixmpp.NewOutboundRelay(handler, comp.Sender(), consumers)
		readiness.XMPP = comp
		g.Go(func() error { return comp.Start(gctx) })
		g.Go(func() error { return relay.Start(gctx) })
	}

	limiter := mw.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec,
		mw.WithKeyFunc(auth.RateLimitKey))

	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins:   cfg.CORS.AllowedOrigins,
		CORSAllowCredentials: cfg.CORS.AllowCredentials,
		TurnRateLimiter:      limiter.Middleware,
		Readiness:            readiness,
	}, handlers)

	srv := server.New(cfg.Server, router)
	g.Go(func() error { return srv.Run(gctx) })

	health := server.NewHealthServer(cfg.GRPC.Port, func(ctx context.Context) bool {
		_, ok := readiness.Check(ctx)
		return ok
	})
	g.Go(func() error { return health.Run(gctx) })

	slog.Info("concierge started",
		"http", srv.Addr(),
		"grpc_port", cfg.GRPC.Port,
		"nats", cfg.NATS.Enabled,
		"xmpp", cfg.XMPP.Enabled,
		"jwt", cfg.JWT.Enabled,
	)

	return g.Wait()
}

func needsPostgres(cfg *config.Config) bool {
	return cfg.Episode.Backend == "postgres" || cfg.Cache.Enabled || cfg.NATS.Enabled
}
