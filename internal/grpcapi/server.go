// Package grpcapi exposes the standard gRPC health service so orchestrators
// can probe the reconciler.
package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-check name reported alongside "".
const ServiceName = "kastle.v1.Reconciler"

type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	logger     *zap.Logger
}

// New listens on addr and registers the health service as SERVING.
func New(addr string, logger *zap.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gs := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{listener: lis, grpcServer: gs, health: hs, logger: logger}, nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx is canceled, then reports NOT_SERVING and stops
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("grpc health listening", zap.String("addr", s.Addr()))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}
