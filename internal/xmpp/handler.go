package xmpp

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gosrc.io/xmpp"
	"gosrc.io/xmpp/stanza"

	inats "github.com/aiox-platform/concierge/internal/nats"
)

// TurnPublisher queues a turn for the orchestrator.
type TurnPublisher interface {
	PublishTurnRequest(ctx context.Context, req inats.TurnRequest) error
}

// Handler bridges XMPP stanzas to turn requests.
type Handler struct {
	publisher TurnPublisher
}

func NewHandler(publisher TurnPublisher) *Handler {
	return &Handler{publisher: publisher}
}

// HandleMessage turns a chat message into a TurnRequest. The actor is the
// sender's bare JID and the session is the thread id, or the sender's
// resource when there is no thread.
func (h *Handler) HandleMessage(s xmpp.Sender, p stanza.Packet) {
	msg, ok := p.(stanza.Message)
	if !ok {
		return
	}
	if strings.TrimSpace(msg.Body) == "" || msg.Type == stanza.MessageTypeError {
		return
	}

	slog.Debug("XMPP message received",
		"from", msg.From,
		"to", msg.To,
		"type", string(msg.Type),
	)

	req := NewTurnRequest(msg, time.Now().UTC())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.publisher.PublishTurnRequest(ctx, req); err != nil {
		slog.Error("publishing turn request", "error", err, "from", msg.From)
		h.sendError(s, msg.From, msg.To, "Internal error processing your message")
	}
}

// NewTurnRequest maps a chat message onto a turn.
func NewTurnRequest(msg stanza.Message, now time.Time) inats.TurnRequest {
	bare, resource := SplitJID(msg.From)
	session := strings.TrimSpace(msg.Thread)
	if session == "" {
		session = resource
	}
	if session == "" {
		session = bare
	}

	return inats.TurnRequest{
		ID:         uuid.New().String(),
		ActorID:    bare,
		SessionID:  session,
		Prompt:     msg.Body,
		Channel:    inats.ChannelXMPP,
		ReplyTo:    msg.From,
		ReplyFrom:  msg.To,
		ReceivedAt: now,
	}
}

// HandlePresence auto-approves subscribe requests.
func (h *Handler) HandlePresence(s xmpp.Sender, p stanza.Packet) {
	pres, ok := p.(stanza.Presence)
	if !ok {
		return
	}

	slog.Debug("XMPP presence received",
		"from", pres.From,
		"to", pres.To,
		"type", string(pres.Type),
	)

	if pres.Type == stanza.PresenceTypeSubscribe {
		reply := stanza.Presence{
			Attrs: stanza.Attrs{
				From: pres.To,
				To:   pres.From,
				Type: stanza.PresenceTypeSubscribed,
			},
		}
		if err := s.Send(reply); err != nil {
			slog.Error("sending presence subscribed reply", "error", err)
		}
	}
}

func (h *Handler) HandleIQ(_ xmpp.Sender, p stanza.Packet) {
	iq, ok := p.(*stanza.IQ)
	if !ok {
		return
	}
	slog.Debug("XMPP IQ received", "from", iq.From, "to", iq.To, "type", string(iq.Type))
}

// SendReply delivers a turn reply as a chat message.
func (h *Handler) SendReply(s xmpp.Sender, reply inats.TurnReply) error {
	_, resource := SplitJID(reply.ReplyTo)
	msg := stanza.Message{
		Attrs: stanza.Attrs{
			From: reply.ReplyFrom,
			To:   reply.ReplyTo,
			Type: stanza.MessageTypeChat,
			Id:   reply.ID,
		},
		Body: reply.Response,
	}
	if reply.SessionID != resource {
		msg.Thread = reply.SessionID
	}
	return s.Send(msg)
}

func (h *Handler) sendError(s xmpp.Sender, to, from, body string) {
	msg := stanza.Message{
		Attrs: stanza.Attrs{
			From: from,
			To:   to,
			Type: stanza.MessageTypeChat,
		},
		Body: body,
	}
	if err := s.Send(msg); err != nil {
		slog.Error("sending error message", "error", err)
	}
}

// SplitJID splits "user@domain/resource" into the bare JID and resource.
func SplitJID(jid string) (bare, resource string) {
	if idx := strings.Index(jid, "/"); idx >= 0 {
		return jid[:idx], jid[idx+1:]
	}
	return jid, ""
}
