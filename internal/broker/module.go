package broker

import (
	"context"

	"go.uber.org/fx"

	"github.com/webitel/im-ws-gateway/config"
	"github.com/webitel/im-ws-gateway/internal/dispatcher"
)

// Module wires a Consumer into the fx graph and runs it for the life of
// the application.
var Module = fx.Module("broker",
	fx.Provide(
		func(cfg *config.Config) Options {
			return Options{
				AMQPURI:        cfg.AMQP.URI,
				QueueName:      cfg.BrokerID,
				PrefetchCount:  cfg.AMQP.PrefetchCount,
				DedupCacheSize: cfg.AMQP.DedupCacheSize,
			}
		},
		New,
		func(d *dispatcher.Dispatcher) Dispatcher { return d },
	),
	fx.Invoke(func(lc fx.Lifecycle, c *Consumer) {
		var cancel context.CancelFunc
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				var runCtx context.Context
				runCtx, cancel = context.WithCancel(context.Background())
				go func() {
					if err := c.Run(runCtx); err != nil && runCtx.Err() == nil {
						c.log.Error("broker consumer stopped unexpectedly", "error", err)
					}
				}()
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
