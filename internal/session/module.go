package session

import (
	"go.uber.org/fx"

	"github.com/webitel/im-ws-gateway/config"
	"github.com/webitel/im-ws-gateway/internal/directory"
)

// Module wires a Factory into the fx graph. The concrete Registry is
// provided by the registry module; directory.Client is narrowed to the
// DirectoryClient subset this package actually depends on.
var Module = fx.Module("session",
	fx.Provide(
		func(cfg *config.Config) Options {
			return Options{
				HeartbeatCheckInterval: cfg.Heartbeat.Interval,
				HeartbeatTimeout:       cfg.Heartbeat.Timeout,
				HandshakeTimeout:       cfg.Handshake.Timeout,
				DirectoryTTL:           cfg.Directory.TTL,
				QueueCapacity:          cfg.Outbound.QueueCapacity,
				WriterDrainTimeout:     cfg.Outbound.DrainTimeout,
			}
		},
		func(cfg *config.Config) BrokerID { return BrokerID(cfg.BrokerID) },
		NewFactory,
		func(c directory.Client) DirectoryClient { return c },
	),
)
