// Package dispatch runs the external actions of the current (domain, stage)
// and leaves a payload on the state for the renderer.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/metrics"
	"github.com/aiox-platform/concierge/internal/providers/food"
	"github.com/aiox-platform/concierge/internal/providers/news"
	"github.com/aiox-platform/concierge/internal/providers/quote"
	"github.com/aiox-platform/concierge/internal/semcache"
)

type FoodGateway interface {
	GetUser(ctx context.Context, userID string) (*food.User, error)
	SearchLocation(ctx context.Context, city, neighborhood string) (*food.Location, error)
	SimulateOrder(ctx context.Context, restaurantID string, items []conversation.OrderItem) (*food.Order, error)
}

type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*quote.Quote, error)
}

type NewsSearcher interface {
	Finance(ctx context.Context, query string) ([]news.Headline, error)
	Football(ctx context.Context, query string, scope news.Scope) ([]news.Headline, error)
}

// Deps are the collaborators the branches call. Cache may be nil.
type Deps struct {
	Food   FoodGateway
	Quotes QuoteProvider
	News   NewsSearcher
	Cache  semcache.Cache
}

type Options struct {
	// Timeout bounds every individual provider call.
	Timeout       time.Duration
	FootballScope news.Scope
}

type branchKey struct {
	domain conversation.Domain
	stage  conversation.Stage
}

type branchFunc func(ctx context.Context, s *conversation.State) error

// Dispatcher maps each (domain, stage) pair to exactly one branch.
type Dispatcher struct {
	deps     Deps
	opts     Options
	branches map[branchKey]branchFunc
}

func New(deps Deps, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FootballScope == "" {
		opts.FootballScope = news.ScopeBR
	}

	d := &Dispatcher{deps: deps, opts: opts}
	d.branches = map[branchKey]branchFunc{
		{conversation.DomainFood, conversation.StageStart}:    d.foodStart,
		{conversation.DomainFood, conversation.StageSelect}:   d.foodSelect,
		{conversation.DomainFood, conversation.StageConfirm}:  d.foodConfirm,
		{conversation.DomainFinance, conversation.StageNone}:  d.finance,
		{conversation.DomainFootball, conversation.StageNone}: d.football,
		{conversation.DomainNone, conversation.StageNone}:     d.fallback,
		{conversation.DomainGeneral, conversation.StageNone}:  d.fallback,
	}
	return d
}

// Routable reports whether a branch exists for the pair.
func (d *Dispatcher) Routable(domain conversation.Domain, stage conversation.Stage) bool {
	_, ok := d.branches[branchKey{domain, stage}]
	return ok
}

// Dispatch runs the branch for the state's (domain, stage). Provider failures
// never escape: they are recorded on the state and replaced by the apology.
func (d *Dispatcher) Dispatch(ctx context.Context, s *conversation.State) {
	branch, ok := d.branches[branchKey{s.Domain, s.Stage}]
	if !ok {
		slog.Error("no dispatcher branch, serving fallback",
			"error", &conversation.UnroutableStateError{Domain: s.Domain, Stage: s.Stage},
			"actor_id", s.ActorID,
			"session_id", s.SessionID,
		)
		branch = d.fallback
	}

	if err := branch(ctx, s); err != nil {
		provider := "unknown"
		var pe *conversation.ExternalProviderError
		if errors.As(err, &pe) {
			provider = pe.Provider
		}
		metrics.ProviderErrorsTotal.WithLabelValues(provider).Inc()
		slog.Warn("dispatch failed",
			"error", err,
			"provider", provider,
			"domain", s.Domain,
			"stage", s.Stage,
		)
		s.Fail(err)
	}
}

// call runs fn under the per-provider timeout and wraps its error.
func call[T any](ctx context.Context, timeout time.Duration, provider string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, &conversation.ExternalProviderError{Provider: provider, Err: err}
	}
	return v, nil
}

func (d *Dispatcher) fallback(_ context.Context, s *conversation.State) error {
	text := s.Goal
	if text == "" {
		text = s.UserInput()
	}
	s.Payload = conversation.TextPayload(conversation.VariantGeneric, text)
	return nil
}
