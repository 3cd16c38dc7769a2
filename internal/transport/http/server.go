// Package http is the WebSocket upgrade surface: a chi router bound to
// every configured port, authenticating and upgrading connections before
// handing each one to a session.Factory.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/webitel/im-ws-gateway/internal/auth"
	"github.com/webitel/im-ws-gateway/internal/session"
)

// Options configures the listening surface.
type Options struct {
	Ports []int
	Path  string

	ShutdownTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Path == "" {
		o.Path = "/ws"
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 5 * time.Second
	}
	return o
}

// Server owns one *http.Server per configured port, all serving the same
// chi router.
type Server struct {
	opts      Options
	log       *slog.Logger
	servers   []*http.Server
	listeners []net.Listener
}

// New builds a Server. Each port gets its own listener so a single gateway
// process can expose the upgrade path on more than one port (e.g. plain and
// TLS-terminated-by-proxy variants) without running separate processes.
func New(opts Options, log *slog.Logger, authenticator *auth.Authenticator, sessions *session.Factory, stats StatsCollector) *Server {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}

	router := chi.NewRouter()
	router.Handle(opts.Path, newUpgradeHandler(log, authenticator, sessions))
	router.Get("/gateway/stats", statsHandler(stats))

	servers := make([]*http.Server, len(opts.Ports))
	for i, port := range opts.Ports {
		servers[i] = &http.Server{
			Addr:    ":" + strconv.Itoa(port),
			Handler: router,
		}
	}

	return &Server{opts: opts, log: log, servers: servers}
}

// Ports returns the TCP ports this server is configured to listen on, for
// the discovery registration step.
func (s *Server) Ports() []int {
	ports := make([]int, len(s.opts.Ports))
	copy(ports, s.opts.Ports)
	return ports
}

// Bind opens every configured listener up front, so a port already in use
// fails the caller synchronously instead of surfacing later from inside a
// detached goroutine.
func (s *Server) Bind() error {
	listeners := make([]net.Listener, len(s.servers))
	for i, srv := range s.servers {
		lis, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, opened := range listeners[:i] {
				_ = opened.Close()
			}
			return fmt.Errorf("bind %s: %w", srv.Addr, err)
		}
		listeners[i] = lis
	}
	s.listeners = listeners
	return nil
}

// Serve runs every bound listener and blocks until ctx is cancelled, then
// shuts each one down gracefully within ShutdownTimeout. Bind must have
// succeeded first.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, len(s.servers))
	var wg sync.WaitGroup

	for i, srv := range s.servers {
		wg.Add(1)
		go func(srv *http.Server, lis net.Listener) {
			defer wg.Done()
			s.log.Info("listening for websocket upgrades", "addr", srv.Addr)
			if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}(srv, s.listeners[i])
	}

	<-ctx.Done()
	s.shutdown()
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// Run binds and serves in one call; tests and simple callers that don't
// need the synchronous-bind/async-serve split can use this directly.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Bind(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			s.log.Warn("listener shutdown error", "addr", srv.Addr, "error", err)
		}
	}
}
