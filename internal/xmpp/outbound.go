package xmpp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
	"gosrc.io/xmpp"

	inats "github.com/aiox-platform/concierge/internal/nats"
)

// OutboundRelay consumes turn replies from NATS and delivers the XMPP ones.
type OutboundRelay struct {
	handler     *Handler
	sender      xmpp.Sender
	consumerMgr *inats.ConsumerManager
}

func NewOutboundRelay(handler *Handler, sender xmpp.Sender, consumerMgr *inats.ConsumerManager) *OutboundRelay {
	return &OutboundRelay{
		handler:     handler,
		sender:      sender,
		consumerMgr: consumerMgr,
	}
}

func (r *OutboundRelay) Start(ctx context.Context) error {
	consumer, err := r.consumerMgr.EnsureConsumer(ctx, inats.StreamTurns, "outbound-relay", inats.SubjectTurnOutbound,
		inats.WithMaxDeliver(3))
	if err != nil {
		return err
	}
	return inats.Consume(ctx, consumer, "outbound-relay", func(_ context.Context, msg jetstream.Msg) {
		r.relay(msg.Data(), msg.Ack, msg.Nak)
	})
}

func (r *OutboundRelay) relay(data []byte, ack, nak func() error) {
	var reply inats.TurnReply
	if err := json.Unmarshal(data, &reply); err != nil {
		slog.Error("unmarshaling turn reply", "error", err)
		_ = ack()
		return
	}

	if reply.Channel != inats.ChannelXMPP || reply.ReplyTo == "" {
		slog.Debug("dropping non-xmpp turn reply", "channel", reply.Channel, "id", reply.ID)
		_ = ack()
		return
	}

	if err := r.handler.SendReply(r.sender, reply); err != nil {
		slog.Error("sending XMPP reply", "error", err, "to", reply.ReplyTo)
		_ = nak()
		return
	}

	slog.Debug("sent XMPP reply", "to", reply.ReplyTo, "in_reply_to", reply.InReplyTo)
	_ = ack()
}
