package auth

import (
	"go.uber.org/fx"

	"github.com/webitel/im-ws-gateway/config"
)

// Module wires an Authenticator built from the live configuration's jwt
// section into the fx graph. It subscribes to the config Watcher so a
// jwt.secret rotation takes effect immediately, without rebuilding the
// dependency graph.
var Module = fx.Module("auth",
	fx.Provide(func(cfg *config.Config, w *config.Watcher) *Authenticator {
		a := New(optionsFromConfig(cfg))
		w.OnChange(func(next *config.Config) {
			a.Reconfigure(optionsFromConfig(next))
		})
		return a
	}),
)

func optionsFromConfig(cfg *config.Config) Options {
	return Options{
		Secret: []byte(cfg.JWT.Secret),
		Alg:    cfg.JWT.Algorithm,
	}
}
