package session

import "time"

// Options bounds the timeouts and buffer sizes of a Session.
type Options struct {
	HandshakeTimeout       time.Duration // bounds Pending; default 10s
	HeartbeatCheckInterval time.Duration // default 30s
	HeartbeatTimeout       time.Duration // default 90s
	WriterDrainTimeout     time.Duration // default 1s
	QueueCapacity          int           // outbound.queue_capacity
	DirectoryTTL           time.Duration // directory.ttl, >= 3x heartbeat interval
}

// DefaultOptions returns conservative defaults for a Session.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout:       10 * time.Second,
		HeartbeatCheckInterval: 30 * time.Second,
		HeartbeatTimeout:       90 * time.Second,
		WriterDrainTimeout:     time.Second,
		QueueCapacity:          256,
		DirectoryTTL:           270 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = d.HandshakeTimeout
	}
	if o.HeartbeatCheckInterval <= 0 {
		o.HeartbeatCheckInterval = d.HeartbeatCheckInterval
	}
	if o.HeartbeatTimeout <= 0 {
		o.HeartbeatTimeout = d.HeartbeatTimeout
	}
	if o.WriterDrainTimeout <= 0 {
		o.WriterDrainTimeout = d.WriterDrainTimeout
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = d.QueueCapacity
	}
	if o.DirectoryTTL <= 0 {
		o.DirectoryTTL = d.DirectoryTTL
	}
	return o
}
