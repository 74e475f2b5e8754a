package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aiox-platform/concierge/internal/classifier"
	"github.com/aiox-platform/concierge/internal/conversation"
	"github.com/aiox-platform/concierge/internal/metrics"
)

// ErrEmptyUtterance is returned for blank prompts.
var ErrEmptyUtterance = errors.New("utterance is empty")

type Classifier interface {
	Classify(ctx context.Context, s *conversation.State) classifier.Result
}

type EpisodeLoader interface {
	Load(ctx context.Context, actorID, sessionID string) *conversation.Episode
}

type Dispatcher interface {
	Dispatch(ctx context.Context, s *conversation.State)
}

type Renderer interface {
	Render(ctx context.Context, s *conversation.State)
}

type EpisodeWriter interface {
	Write(ctx context.Context, s *conversation.State) (*conversation.Episode, error)
}

// TurnResult is what a caller gets back for one utterance.
type TurnResult struct {
	Response string
	// Episode is nil when persisting it failed.
	Episode *conversation.Episode
	State   *conversation.State
}

// Engine runs the turn pipeline: load continuity, classify, route,
// dispatch, render, write the episode.
type Engine struct {
	loader     EpisodeLoader
	classifier Classifier
	dispatcher Dispatcher
	renderer   Renderer
	writer     EpisodeWriter

	timeout      time.Duration
	writeTimeout time.Duration
	locks        *sessionLocks
}

type EngineOption func(*Engine)

// WithTurnTimeout bounds the whole turn, episode write excluded.
func WithTurnTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

func NewEngine(loader EpisodeLoader, cls Classifier, dispatcher Dispatcher, renderer Renderer, writer EpisodeWriter, opts ...EngineOption) *Engine {
	e := &Engine{
		loader:       loader,
		classifier:   cls,
		dispatcher:   dispatcher,
		renderer:     renderer,
		writer:       writer,
		writeTimeout: 5 * time.Second,
		locks:        newSessionLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleTurn processes one utterance. Turns of the same actor and session
// run one at a time. If ctx ends before the reply is rendered, no episode
// is written and ctx.Err() is returned.
func (e *Engine) HandleTurn(ctx context.Context, actorID, sessionID, utterance string) (*TurnResult, error) {
	if strings.TrimSpace(utterance) == "" {
		return nil, ErrEmptyUtterance
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	unlock, err := e.locks.lock(ctx, actorID, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	s := conversation.NewState(actorID, sessionID, utterance)
	s.Resume(e.loader.Load(ctx, actorID, sessionID))

	result := e.classifier.Classify(ctx, s)
	decision := Route(s, result)

	slog.Debug("turn routed",
		"actor_id", actorID,
		"session_id", sessionID,
		"intent", result.Intent,
		"event", result.Event,
		"rule", decision.Rule,
		"domain", s.Domain,
		"stage", s.Stage,
	)

	if decision.Next == NextRespond {
		s.Payload = conversation.TextPayload(conversation.VariantGeneric, decision.Text)
	} else {
		e.dispatcher.Dispatch(ctx, s)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.renderer.Render(ctx, s)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Append(conversation.RoleAssistant, s.FinalResponse)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.writeTimeout)
	defer cancel()

	ep, err := e.writer.Write(writeCtx, s)
	if err != nil {
		slog.Error("writing episode", "error", err, "actor_id", actorID, "session_id", sessionID)
	}

	outcome := conversation.InferOutcome(s)
	metrics.TurnsTotal.WithLabelValues(string(s.Domain), string(outcome)).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())

	if s.Err != nil {
		slog.Warn("turn completed with error", "error", s.Err, "actor_id", actorID, "rule", decision.Rule)
	}

	return &TurnResult{Response: s.FinalResponse, Episode: ep, State: s}, nil
}
