package broker

import "time"

// Options configures the Consumer.
type Options struct {
	AMQPURI   string
	QueueName string // this node's broker id

	PrefetchCount int // AMQP channel QoS, also a bound on in-flight handlers
	DedupCacheSize int

	ReconnectBaseInterval time.Duration
	ReconnectMaxInterval  time.Duration

	ThrottleLimit  int
	ThrottleWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.PrefetchCount <= 0 {
		o.PrefetchCount = 64
	}
	if o.DedupCacheSize <= 0 {
		o.DedupCacheSize = 4096
	}
	if o.ReconnectBaseInterval <= 0 {
		o.ReconnectBaseInterval = time.Second
	}
	if o.ReconnectMaxInterval <= 0 {
		o.ReconnectMaxInterval = 30 * time.Second
	}
	if o.ThrottleLimit <= 0 {
		o.ThrottleLimit = 100
	}
	if o.ThrottleWindow <= 0 {
		o.ThrottleWindow = time.Second
	}
	return o
}
