package config

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module wires the live *Config (and its Watcher) into the fx graph from a
// config file path supplied by the CLI layer via fx.Supply.
var Module = fx.Module("config",
	fx.Provide(func(path ConfigFilePath) (*Watcher, error) {
		return NewWatcher(string(path), func(err error) {
			slog.Error("configuration reload rejected", "error", err)
		})
	}),
	fx.Provide(func(w *Watcher) *Config {
		return w.Current()
	}),
)

// ConfigFilePath is the CLI-supplied path to the configuration file. A
// distinct type so fx resolves it unambiguously alongside other strings in
// the graph.
type ConfigFilePath string
