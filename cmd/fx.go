package cmd

import (
	"go.uber.org/fx"

	"github.com/webitel/im-ws-gateway/config"
	"github.com/webitel/im-ws-gateway/internal/auth"
	"github.com/webitel/im-ws-gateway/internal/broker"
	"github.com/webitel/im-ws-gateway/internal/directory"
	"github.com/webitel/im-ws-gateway/internal/discovery"
	"github.com/webitel/im-ws-gateway/internal/dispatcher"
	"github.com/webitel/im-ws-gateway/internal/domain/registry"
	"github.com/webitel/im-ws-gateway/internal/session"
	"github.com/webitel/im-ws-gateway/internal/transport/grpcadmin"
	wshttp "github.com/webitel/im-ws-gateway/internal/transport/http"
)

// NewApp wires the full fx graph from a config file path supplied by the
// CLI layer. configFile may be empty to use the default search path.
func NewApp(configFile string) *fx.App {
	return fx.New(
		fx.Supply(config.ConfigFilePath(configFile)),
		fx.Provide(
			ProvideLogger,
			ProvideWatermillLogger,
		),
		config.Module,
		registry.Module,
		directory.Module,
		auth.Module,
		session.Module,
		dispatcher.Module,
		broker.Module,
		wshttp.Module,
		grpcadmin.Module,
		discovery.Module,
	)
}
