package http

import (
	"encoding/json"
	"net/http"

	"github.com/webitel/im-ws-gateway/internal/dispatcher"
)

// StatsCollector is the subset of process-wide state the stats surface
// reads. Never on the message-delivery path.
type StatsCollector interface {
	ConnectedUsers() int
	Totals() dispatcher.Stats
}

// statsSnapshot is the JSON shape the CLI's stats subcommand polls.
type statsSnapshot struct {
	ConnectedUsers int `json:"connected_users"`
	Delivered      int `json:"delivered"`
	Slow           int `json:"slow"`
	Missed         int `json:"missed"`
}

func statsHandler(collector StatsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals := collector.Totals()
		snapshot := statsSnapshot{
			ConnectedUsers: collector.ConnectedUsers(),
			Delivered:      totals.Delivered,
			Slow:           totals.Slow,
			Missed:         totals.Missed,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshot)
	}
}
