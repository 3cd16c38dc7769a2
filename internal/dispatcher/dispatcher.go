// Package dispatcher resolves a broker message's recipients against the
// registry and enqueues the resulting wire frame onto each one. It never
// blocks on a session: a full outbound queue is the session's own problem
// to report, not the dispatcher's to wait out.
package dispatcher

import (
	"log/slog"
	"sync/atomic"

	"github.com/webitel/im-ws-gateway/internal/domain/model"
	"github.com/webitel/im-ws-gateway/internal/domain/registry"
)

// Registry is the subset of *registry.Registry the Dispatcher needs.
type Registry interface {
	Get(userID string) (registry.Handle, bool)
}

// Stats counts the outcome of a single Dispatch call.
type Stats struct {
	Delivered int
	Slow      int
	Missed    int
}

// Dispatcher fans a BrokerMessage out to every locally-registered
// recipient named in its Ids.
type Dispatcher struct {
	registry Registry
	log      *slog.Logger

	totalDelivered atomic.Int64
	totalSlow      atomic.Int64
	totalMissed    atomic.Int64
}

// New creates a Dispatcher bound to the process-wide Registry. A nil
// logger falls back to slog.Default.
func New(reg *registry.Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{registry: reg, log: log}
}

// Dispatch resolves every id in msg.Ids against the registry and attempts
// a non-blocking enqueue of the resulting frame. An id absent from the
// registry is counted Missed; a present id whose queue is full is counted
// Slow (the session closes itself as a side effect of the failed
// enqueue); everything else is Delivered. An id repeated in msg.Ids is
// resolved and counted only once.
func (d *Dispatcher) Dispatch(msg model.BrokerMessage) Stats {
	data := msg.ToFrame().Marshal()

	var stats Stats
	seen := make(map[string]struct{}, len(msg.Ids))
	for _, id := range msg.Ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		handle, ok := d.registry.Get(id)
		if !ok {
			stats.Missed++
			continue
		}
		if handle.Enqueue(data) {
			stats.Delivered++
		} else {
			stats.Slow++
		}
	}

	d.totalDelivered.Add(int64(stats.Delivered))
	d.totalSlow.Add(int64(stats.Slow))
	d.totalMissed.Add(int64(stats.Missed))

	if stats.Slow > 0 || stats.Missed > 0 {
		d.log.Debug("dispatch completed with non-delivered recipients",
			"delivered", stats.Delivered, "slow", stats.Slow, "missed", stats.Missed)
	}

	return stats
}

// Totals returns the cumulative counters since process start, for the
// stats surface.
func (d *Dispatcher) Totals() Stats {
	return Stats{
		Delivered: int(d.totalDelivered.Load()),
		Slow:      int(d.totalSlow.Load()),
		Missed:    int(d.totalMissed.Load()),
	}
}
