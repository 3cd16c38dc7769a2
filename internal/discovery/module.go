package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/webitel/im-ws-gateway/config"
	wstransport "github.com/webitel/im-ws-gateway/internal/transport/http"
)

// Module wires a ConsulClient into the fx graph, registers one service
// instance per configured websocket port on start, keeps each instance's
// TTL check passing for as long as the process runs, and deregisters all
// of them on clean shutdown.
var Module = fx.Module("discovery",
	fx.Provide(func(cfg *config.Config, log *slog.Logger) (*ConsulClient, error) {
		return NewConsulClient(cfg.Consul.Address, log)
	}),
	fx.Invoke(func(lc fx.Lifecycle, c *ConsulClient, cfg *config.Config, srv *wstransport.Server, log *slog.Logger) {
		var ids []string
		var cancel context.CancelFunc
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				for _, port := range srv.Ports() {
					id := fmt.Sprintf("%s-%d", cfg.BrokerID, port)
					if err := c.Register(ctx, id, cfg.BrokerID, "", port); err != nil {
						log.Warn("discovery registration failed", "error", err, "port", port)
						continue
					}
					ids = append(ids, id)
				}

				var renewCtx context.Context
				renewCtx, cancel = context.WithCancel(context.Background())
				go renewLoop(renewCtx, c, ids, log)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				if cancel != nil {
					cancel()
				}
				for _, id := range ids {
					if err := c.Deregister(ctx, id); err != nil {
						log.Warn("discovery deregistration failed", "error", err, "id", id)
					}
				}
				return nil
			},
		})
	}),
)

// renewLoop reports every registered id's TTL check passing roughly once
// per renewInterval until ctx is cancelled. Without this, Consul marks the
// checks critical checkTTL after registration and deregisters the service
// entirely deregisterCriticalServiceAfter after that.
func renewLoop(ctx context.Context, c *ConsulClient, ids []string, log *slog.Logger) {
	if len(ids) == 0 {
		return
	}

	ticker := time.NewTicker(renewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, id := range ids {
				if err := c.Renew(id); err != nil {
					log.Warn("discovery TTL renewal failed", "error", err, "id", id)
				}
			}
		}
	}
}
