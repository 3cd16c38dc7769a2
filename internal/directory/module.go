package directory

import (
	"context"

	"go.uber.org/fx"

	"github.com/webitel/im-ws-gateway/config"
)

// Module wires a Redis-backed Client into the fx graph.
var Module = fx.Module("directory",
	fx.Provide(
		func(cfg *config.Config) RedisOptions {
			return RedisOptions{
				Addr:     cfg.Directory.Endpoint,
				Password: cfg.Directory.Credentials,
				DB:       cfg.Directory.DB,
				PoolSize: cfg.Directory.PoolSize,
			}
		},
		NewRedisClient,
		func(c *RedisClient) Client { return c },
	),
	fx.Invoke(func(lc fx.Lifecycle, c *RedisClient) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error { return c.Close() },
		})
	}),
)
