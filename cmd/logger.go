package cmd

import (
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/webitel/im-ws-gateway/config"
)

// ProvideLogger builds the process-wide structured logger from the live
// configuration's log section.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Log.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// ProvideWatermillLogger adapts the process logger to watermill's logging
// interface, so broker router/middleware logs flow through the same
// structured sink as everything else.
func ProvideWatermillLogger(log *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(log)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
