// Package grpcadmin exposes the gateway's operational surface over gRPC:
// the standard health-check service and reflection, never the message path.
package grpcadmin

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Options configures the admin listener.
type Options struct {
	Port int
}

// Server is a bare gRPC server carrying only grpc_health_v1 and reflection.
type Server struct {
	opts     Options
	log      *slog.Logger
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

// New builds a Server. The health service starts in NOT_SERVING for every
// component until MarkServing is called, so a load balancer never routes
// traffic to a gateway that hasn't finished its own startup sequence.
func New(opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	gs := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{opts: opts, log: log, server: gs, health: hs}
}

// MarkServing flips the overall health status to SERVING. Called once the
// websocket listener and broker consumer have both started successfully.
func (s *Server) MarkServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// MarkNotServing flips the overall health status back to NOT_SERVING,
// called from the shutdown path before the listener closes.
func (s *Server) MarkNotServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
}

// Bind opens the listener up front so a port already in use fails the
// caller synchronously instead of surfacing later from inside a detached
// goroutine.
func (s *Server) Bind() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return fmt.Errorf("grpcadmin: listen: %w", err)
	}
	s.listener = lis
	return nil
}

// Serve blocks on the bound listener until ctx is cancelled. Bind must
// have succeeded first.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening for admin gRPC", "addr", s.listener.Addr().String())
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.MarkNotServing()
		s.server.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Run binds and serves in one call; tests and simple callers that don't
// need the synchronous-bind/async-serve split can use this directly.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Bind(); err != nil {
		return err
	}
	return s.Serve(ctx)
}
