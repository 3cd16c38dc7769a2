package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"

	"github.com/webitel/im-ws-gateway/config"
)

type statsSnapshot struct {
	ConnectedUsers int `json:"connected_users"`
	Delivered      int `json:"delivered"`
	Slow           int `json:"slow"`
	Missed         int `json:"missed"`
}

func statsCmd() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Render a live view of this gateway's registry occupancy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config_file",
				Usage: "Path to the configuration file",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Poll interval",
				Value: time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config_file"))
			if err != nil {
				return cli.Exit(err.Error(), exitConfigError)
			}
			if len(cfg.Websocket.Ports) == 0 {
				return cli.Exit("no websocket.ports configured to poll", exitConfigError)
			}

			statsURL := fmt.Sprintf("http://127.0.0.1:%d/gateway/stats", cfg.Websocket.Ports[0])
			return runStatsDashboard(statsURL, c.Duration("interval"))
		},
	}
}

func runStatsDashboard(statsURL string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("stats: init terminal UI: %w", err)
	}
	defer ui.Close()

	connected := widgets.NewGauge()
	connected.Title = "Connected Users"
	connected.SetRect(0, 0, 50, 3)

	totals := widgets.NewParagraph()
	totals.Title = "Dispatch Totals"
	totals.SetRect(0, 3, 50, 8)

	render := func(snap statsSnapshot) {
		connected.Percent = percentClamp(snap.ConnectedUsers)
		connected.Label = fmt.Sprintf("%d", snap.ConnectedUsers)
		totals.Text = fmt.Sprintf("delivered: %d\nslow:      %d\nmissed:    %d",
			snap.Delivered, snap.Slow, snap.Missed)
		ui.Render(connected, totals)
	}

	render(statsSnapshot{})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-ticker.C:
			snap, err := fetchStats(statsURL)
			if err != nil {
				totals.Text = fmt.Sprintf("poll error: %v", err)
				ui.Render(totals)
				continue
			}
			render(snap)
		}
	}
}

func fetchStats(url string) (statsSnapshot, error) {
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return statsSnapshot{}, err
	}
	defer resp.Body.Close()

	var snap statsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return statsSnapshot{}, err
	}
	return snap, nil
}

// percentClamp keeps the gauge within termui's [0, 100] range; connected
// user counts beyond 100 simply saturate the bar rather than erroring.
func percentClamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
