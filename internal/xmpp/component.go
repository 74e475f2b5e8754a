package xmpp

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"gosrc.io/xmpp"

	"github.com/aiox-platform/concierge/internal/config"
)

var errNotConnected = errors.New("xmpp component not connected")

// Component is the XEP-0114 external component users chat with. Inbound
// messages go to the Handler; replies leave through Sender.
type Component struct {
	sm        *xmpp.StreamManager
	comp      *xmpp.Component
	cancel    context.CancelFunc
	connected atomic.Bool
}

func NewComponent(cfg config.XMPPConfig, handler *Handler) (*Component, error) {
	router := xmpp.NewRouter()
	router.HandleFunc("message", handler.HandleMessage)
	router.HandleFunc("presence", handler.HandlePresence)
	router.HandleFunc("iq", handler.HandleIQ)

	c := &Component{}

	comp, err := xmpp.NewComponent(xmpp.ComponentOptions{
		TransportConfiguration: xmpp.TransportConfiguration{
			Address: cfg.ComponentAddr(),
			Domain:  cfg.ComponentName,
		},
		Domain:   cfg.ComponentName,
		Secret:   cfg.ComponentSecret,
		Name:     "Concierge",
		Category: "client",
		Type:     "bot",
	}, router, func(err error) {
		c.connected.Store(false)
		slog.Error("xmpp stream error", "error", err, "component", cfg.ComponentName)
	})
	if err != nil {
		return nil, err
	}
	c.comp = comp

	c.sm = xmpp.NewStreamManager(comp, func(xmpp.Sender) {
		c.connected.Store(true)
		slog.Info("xmpp component online", "component", cfg.ComponentName, "addr", cfg.ComponentAddr())
	})
	return c, nil
}

// Start blocks until ctx is done or the stream manager gives up.
func (c *Component) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.sm.Run()
	}()

	select {
	case <-ctx.Done():
		c.Stop()
		return nil
	case err := <-errCh:
		c.connected.Store(false)
		return err
	}
}

func (c *Component) Sender() xmpp.Sender {
	return c.comp
}

// HealthCheck fails until the server has accepted the component handshake.
func (c *Component) HealthCheck() error {
	if !c.connected.Load() {
		return errNotConnected
	}
	return nil
}

func (c *Component) Stop() {
	c.connected.Store(false)
	if c.cancel != nil {
		c.cancel()
	}
	c.sm.Stop()
}
