package broker

import lru "github.com/hashicorp/golang-lru/v2"

// dedup is a bounded set of recently-seen message ids. AMQP redelivery
// after an ack-timeout race can resubmit a message the consumer already
// dispatched; dedup lets the handler ack-and-skip instead of delivering
// it twice. This is a robustness addition, not a correctness requirement:
// the dispatcher enqueues at most once per recipient per Dispatch call
// regardless.
type dedup struct {
	cache *lru.Cache[string, struct{}]
}

func newDedup(size int) (*dedup, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &dedup{cache: cache}, nil
}

// seen reports whether id was already recorded, recording it either way.
func (d *dedup) seen(id string) bool {
	if _, ok := d.cache.Get(id); ok {
		return true
	}
	d.cache.Add(id, struct{}{})
	return false
}
