// Package app wires the turn engine from configuration. Both the server
// and the CLI build their engine here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aiox-platform/concierge/internal/classifier"
	"github.com/aiox-platform/concierge/internal/config"
	"github.com/aiox-platform/concierge/internal/dispatch"
	"github.com/aiox-platform/concierge/internal/episode"
	"github.com/aiox-platform/concierge/internal/llm"
	"github.com/aiox-platform/concierge/internal/orchestrator"
	"github.com/aiox-platform/concierge/internal/providers"
	"github.com/aiox-platform/concierge/internal/providers/food"
	"github.com/aiox-platform/concierge/internal/providers/news"
	"github.com/aiox-platform/concierge/internal/providers/quote"
	"github.com/aiox-platform/concierge/internal/render"
	"github.com/aiox-platform/concierge/internal/semcache"
)

const loadTimeout = 2 * time.Second

// Model is what the engine needs from the language model.
type Model interface {
	llm.Generator
	llm.Embedder
}

// Options carries the connections built by the caller. Nil members disable
// what depends on them.
type Options struct {
	Pool   *pgxpool.Pool
	Redis  redis.Cmdable
	Events episode.EventPublisher
	// Model replaces the Gemini client.
	Model Model
}

// Stack is a ready engine plus everything that must be closed with it.
type Stack struct {
	Engine   *orchestrator.Engine
	Store    episode.Store
	Renderer *render.Renderer

	sweeper *semcache.Sweeper
	closers []func() error
}

// Build assembles the engine.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Stack, error) {
	model := opts.Model
	if model == nil {
		g, err := llm.NewGenAI(ctx, cfg.LLM)
		if err != nil {
			return nil, err
		}
		model = g
	}

	st := &Stack{}

	store, closeStore, err := OpenStore(cfg.Episode, opts.Pool, opts.Redis)
	if err != nil {
		return nil, err
	}
	st.Store = store
	if closeStore != nil {
		st.closers = append(st.closers, closeStore)
	}

	var cache semcache.Cache
	if cfg.Cache.Enabled {
		if opts.Pool == nil {
			slog.Warn("semantic cache enabled without postgres, disabling")
		} else {
			pg := semcache.NewPGVector(opts.Pool, model, cfg.Cache.Threshold)
			sweeper, err := semcache.NewSweeper(pg, cfg.Cache.Sweep, cfg.Cache.TTL)
			if err != nil {
				st.Close()
				return nil, err
			}
			cache = pg
			st.sweeper = sweeper
			sweeper.Start()
		}
	}

	httpClient := providers.NewHTTPClient(cfg.Providers.Timeout, cfg.Providers.UserAgent)
	gateway := food.NewMCPGateway(cfg.Providers.FoodURL, cfg.Providers.FoodTarget)
	st.closers = append(st.closers, gateway.Close)

	dispatcher := dispatch.New(dispatch.Deps{
		Food:   gateway,
		Quotes: quote.NewYahoo(httpClient, quote.DefaultBaseURL),
		News:   news.NewRSS(httpClient),
		Cache:  cache,
	}, dispatch.Options{
		Timeout:       cfg.Providers.Timeout,
		FootballScope: news.Scope(cfg.Providers.FootballScope),
	})

	var renderOpts []render.Option
	if cache != nil {
		renderOpts = append(renderOpts, render.WithCache(cache, cfg.Providers.Timeout))
	}
	st.Renderer = render.New(model, renderOpts...)

	cls := classifier.New(model, llm.GenerateOptions{
		Temperature: float32(cfg.LLM.Temperature),
		MaxTokens:   int32(cfg.LLM.MaxTokens),
	})

	st.Engine = orchestrator.NewEngine(
		episode.NewLoader(store, loadTimeout),
		cls,
		dispatcher,
		st.Renderer,
		episode.NewWriter(store, opts.Events),
		orchestrator.WithTurnTimeout(cfg.Turn.Timeout),
	)

	slog.Info("engine ready",
		"episode_backend", cfg.Episode.Backend,
		"semantic_cache", cache != nil,
		"model", cfg.LLM.Model,
	)
	return st, nil
}

// OpenStore picks the episode backend. The returned close func may be nil.
func OpenStore(cfg config.EpisodeConfig, pool *pgxpool.Pool, rdb redis.Cmdable) (episode.Store, func() error, error) {
	switch cfg.Backend {
	case "redis", "":
		if rdb == nil {
			return nil, nil, errors.New("redis episode backend needs a redis client")
		}
		return episode.NewRedisStore(rdb, episode.WithTTL(cfg.TTL)), nil, nil
	case "postgres":
		if pool == nil {
			return nil, nil, errors.New("postgres episode backend needs a database pool")
		}
		return episode.NewPostgresStore(pool), nil, nil
	case "duckdb":
		s, err := episode.NewDuckDBStore(cfg.DuckDBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown episode backend %q", cfg.Backend)
	}
}

// Close waits for background cache writes, then releases resources.
func (s *Stack) Close() {
	if s.Renderer != nil {
		s.Renderer.Wait()
	}
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("closing engine resource", "error", err)
		}
	}
}
