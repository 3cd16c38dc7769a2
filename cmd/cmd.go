package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/webitel/im-ws-gateway/config"
)

const (
	ServiceName      = "im-ws-gateway"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// Exit codes per the gateway's external interface contract.
const (
	exitOK          = 0
	exitConfigError = 1
	exitBindError   = 2
)

func Run() error {
	app := &cli.App{
		Name:  ServiceName,
		Usage: "WebSocket long-connection gateway for the Webitel platform",
		Commands: []*cli.Command{
			serverCmd(),
			statsCmd(),
		},
	}

	return app.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the websocket gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
		},
		Action: func(c *cli.Context) error {
			configFile := c.String("config_file")

			// Fail fast on a bad config before any listener is touched.
			if _, err := config.Load(configFile); err != nil {
				slog.Error("configuration error", "error", err)
				return cli.Exit(err.Error(), exitConfigError)
			}

			app := NewApp(configFile)

			if err := app.Start(c.Context); err != nil {
				var netErr *net.OpError
				if errors.As(err, &netErr) {
					slog.Error("fatal bind error", "error", err)
					return cli.Exit(err.Error(), exitBindError)
				}
				slog.Error("startup error", "error", err)
				return cli.Exit(err.Error(), exitConfigError)
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("shutting down")
			if err := app.Stop(context.Background()); err != nil {
				slog.Error("shutdown error", "error", err)
				return cli.Exit(err.Error(), exitConfigError)
			}
			return cli.Exit("", exitOK)
		},
	}
}
