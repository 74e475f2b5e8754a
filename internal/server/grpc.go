package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ReadyFunc reports whether the service can take traffic.
type ReadyFunc func(ctx context.Context) bool

// HealthServer is a gRPC server exposing grpc.health.v1, whose serving
// status follows ReadyFunc.
type HealthServer struct {
	addr     string
	grpc     *grpc.Server
	health   *health.Server
	ready    ReadyFunc
	interval time.Duration
}

func NewHealthServer(port int, ready ReadyFunc) *HealthServer {
	hs := &HealthServer{
		addr:     fmt.Sprintf(":%d", port),
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		ready:    ready,
		interval: 10 * time.Second,
	}
	healthpb.RegisterHealthServer(hs.grpc, hs.health)
	return hs
}

// Refresh updates the overall serving status once.
func (hs *HealthServer) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if !hs.ready(ctx) {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.health.SetServingStatus("", status)
}

// Serve listens on lis until ctx is cancelled.
func (hs *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	hs.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(hs.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.health.Shutdown()
				hs.grpc.GracefulStop()
				return
			case <-ticker.C:
				hs.Refresh(ctx)
			}
		}
	}()

	slog.Info("starting grpc health server", "addr", lis.Addr().String())
	if err := hs.grpc.Serve(lis); err != nil {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Run listens on the configured port.
func (hs *HealthServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", hs.addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return hs.Serve(ctx, lis)
}
