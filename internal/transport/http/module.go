package http

import (
	"context"

	"go.uber.org/fx"

	"github.com/webitel/im-ws-gateway/config"
	"github.com/webitel/im-ws-gateway/internal/dispatcher"
	"github.com/webitel/im-ws-gateway/internal/domain/registry"
)

// registryDispatcherStats adapts the process-wide Registry and Dispatcher
// to the narrow StatsCollector surface the /gateway/stats route reads.
type registryDispatcherStats struct {
	reg  *registry.Registry
	disp *dispatcher.Dispatcher
}

func (s registryDispatcherStats) ConnectedUsers() int     { return s.reg.Len() }
func (s registryDispatcherStats) Totals() dispatcher.Stats { return s.disp.Totals() }

// Module wires a Server built from the live configuration's websocket
// section into the fx graph and runs it for the life of the application.
var Module = fx.Module("http",
	fx.Provide(func(cfg *config.Config) Options {
		return Options{
			Ports: cfg.Websocket.Ports,
			Path:  cfg.Websocket.Path,
		}
	}),
	fx.Provide(func(reg *registry.Registry, disp *dispatcher.Dispatcher) StatsCollector {
		return registryDispatcherStats{reg: reg, disp: disp}
	}),
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Server, reg *registry.Registry) {
		var cancel context.CancelFunc
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				// Bind synchronously: a port already in use must fail
				// app.Start() itself, not surface later from a goroutine.
				if err := s.Bind(); err != nil {
					return err
				}
				var runCtx context.Context
				runCtx, cancel = context.WithCancel(context.Background())
				go func() {
					if err := s.Serve(runCtx); err != nil {
						s.log.Error("websocket server stopped unexpectedly", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				// net/http's graceful Shutdown never sees these
				// connections: the upgrader hijacks the socket out from
				// under the server on every successful upgrade, so
				// cancelling the accept-loop context alone would abandon
				// every live session mid-flight. Close each one by hand
				// first, so each writer goroutine starts its drain window
				// and each session's close path attempts its directory
				// delete. OnStop does not wait for those sessions to
				// finish: a delete that runs after the directory module
				// has closed its Redis client fails, and that entry
				// expires on its TTL instead.
				for _, h := range reg.All() {
					h.Shutdown()
				}
				if cancel != nil {
					cancel()
				}
				return nil
			},
		})
	}),
)
