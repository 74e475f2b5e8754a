package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/aiox-platform/concierge/internal/conversation"
	inats "github.com/aiox-platform/concierge/internal/nats"
	"github.com/aiox-platform/concierge/internal/providers/quote"
)

// TurnHandler runs one turn. *Engine implements it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, actorID, sessionID, utterance string) (*TurnResult, error)
}

// ReplyPublisher is the subset of the NATS publisher the orchestrator uses.
type ReplyPublisher interface {
	PublishTurnReply(ctx context.Context, reply inats.TurnReply) error
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

// Orchestrator consumes inbound turn requests from JetStream, runs them
// through the engine and publishes replies and audit events.
type Orchestrator struct {
	publisher   ReplyPublisher
	consumerMgr *inats.ConsumerManager
	validator   *Validator
	engine      TurnHandler
	ackWait     time.Duration
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(
	publisher ReplyPublisher,
	consumerMgr *inats.ConsumerManager,
	validator *Validator,
	engine TurnHandler,
) *Orchestrator {
	return &Orchestrator{
		publisher:   publisher,
		consumerMgr: consumerMgr,
		validator:   validator,
		engine:      engine,
		ackWait:     time.Minute,
	}
}

// SetAckWait sets how long an inbound request stays leased while its turn runs.
func (o *Orchestrator) SetAckWait(d time.Duration) {
	if d > 0 {
		o.ackWait = d
	}
}

// Start begins the orchestrator event loop. Each fetched batch is processed
// in order, so turns of one session keep their arrival order.
func (o *Orchestrator) Start(ctx context.Context) error {
	consumer, err := o.consumerMgr.EnsureConsumer(ctx, inats.StreamTurns, "orchestrator", inats.SubjectTurnInbound,
		inats.WithAckWait(o.ackWait))
	if err != nil {
		return err
	}
	return inats.Consume(ctx, consumer, "orchestrator", o.processMessage)
}

func (o *Orchestrator) processMessage(ctx context.Context, msg jetstream.Msg) {
	var req inats.TurnRequest
	if err := json.Unmarshal(msg.Data(), &req); err != nil {
		slog.Error("unmarshaling turn request", "error", err)
		_ = msg.Term()
		return
	}

	if err := o.validator.Validate(&req); err != nil {
		slog.Warn("rejecting turn request", "error", err, "id", req.ID)
		_ = msg.Term()
		return
	}

	o.Process(ctx, req)
	_ = msg.Ack()
}

// Process runs one request and publishes its reply and audit event.
func (o *Orchestrator) Process(ctx context.Context, req inats.TurnRequest) {
	slog.Debug("orchestrator processing turn",
		"id", req.ID,
		"actor_id", req.ActorID,
		"session_id", req.SessionID,
		"channel", req.Channel,
	)

	reply := inats.TurnReply{
		ID:        uuid.New().String(),
		InReplyTo: req.ID,
		ActorID:   req.ActorID,
		SessionID: req.SessionID,
		Channel:   req.Channel,
		ReplyTo:   req.ReplyTo,
		ReplyFrom: req.ReplyFrom,
	}
	audit := inats.AuditEvent{
		ActorID:   req.ActorID,
		SessionID: req.SessionID,
		EventType: "turn_completed",
		Severity:  "info",
		Timestamp: time.Now().UTC(),
	}

	res, err := o.engine.HandleTurn(ctx, req.ActorID, req.SessionID, req.Prompt)
	switch {
	case err != nil:
		slog.Error("turn aborted", "error", err, "id", req.ID)
		reply.Response = "Error: " + userMessage(err)
		audit.EventType = "turn_aborted"
		audit.Severity = "error"
		audit.Details = auditDetails(err)
	default:
		reply.Response = res.Response
		if res.Episode != nil {
			reply.EpisodeID = res.Episode.ID
			reply.Outcome = string(res.Episode.Outcome)
			audit.EpisodeID = res.Episode.ID
		}
		if res.State.Err != nil {
			audit.Severity = "warn"
			slog.Warn("turn failed", "error", res.State.Err, "id", req.ID)
			audit.Details = auditDetails(res.State.Err)
		} else {
			audit.Details = "domain=" + string(res.State.Domain) + " stage=" + string(res.State.Stage)
		}
	}

	if err := o.publisher.PublishTurnReply(ctx, reply); err != nil {
		slog.Error("publishing turn reply", "error", err)
	}
	if err := o.publisher.PublishAuditEvent(ctx, audit); err != nil {
		slog.Error("publishing audit event", "error", err)
	}
}

// auditDetails names where a turn failed and how, without the error text.
// Audit events are readable over the API; error strings carry hosts and URLs.
func auditDetails(err error) string {
	kind := errorKind(err)

	var provErr *conversation.ExternalProviderError
	if errors.As(err, &provErr) {
		return "provider=" + provErr.Provider + " kind=" + kind
	}
	return "kind=" + kind
}

func errorKind(err error) string {
	var (
		parseErr    *conversation.ClassificationParseError
		routeErr    *conversation.UnroutableStateError
		loadErr     *conversation.ContinuityLoadError
		providerErr *conversation.ExternalProviderError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, quote.ErrSymbolNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyUtterance):
		return "empty_utterance"
	case errors.As(err, &parseErr):
		return "classification"
	case errors.As(err, &routeErr):
		return "unroutable"
	case errors.As(err, &loadErr):
		return "continuity"
	case errors.As(err, &providerErr):
		return "upstream"
	default:
		return "internal"
	}
}

func userMessage(err error) string {
	if errors.Is(err, ErrEmptyUtterance) {
		return "please send a message"
	}
	return "the request could not be completed, please try again"
}
