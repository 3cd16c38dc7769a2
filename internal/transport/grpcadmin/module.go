package grpcadmin

import (
	"context"

	"go.uber.org/fx"

	"github.com/webitel/im-ws-gateway/config"
)

// Module wires the admin gRPC Server into the fx graph and runs it for the
// life of the application. It marks itself serving on start, since by the
// time fx's OnStart hooks run, the http and broker modules have already
// started successfully (fx runs hooks in registration order).
var Module = fx.Module("grpcadmin",
	fx.Provide(func(cfg *config.Config) Options {
		return Options{Port: cfg.Admin.GRPCPort}
	}),
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		var cancel context.CancelFunc
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				if err := s.Bind(); err != nil {
					return err
				}
				var runCtx context.Context
				runCtx, cancel = context.WithCancel(context.Background())
				go func() {
					if err := s.Serve(runCtx); err != nil {
						s.log.Error("admin gRPC server stopped unexpectedly", "error", err)
					}
				}()
				s.MarkServing()
				return nil
			},
			OnStop: func(context.Context) error {
				if cancel != nil {
					cancel()
				}
				return nil
			},
		})
	}),
)
