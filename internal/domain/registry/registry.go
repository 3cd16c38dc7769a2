// Package registry implements the in-memory mapping from UserId to the
// live Session handle for this process. It holds the sole process-wide
// mutable state of the gateway.
//
// Unlike a single process-wide map guarded by one mutex, the Registry is
// sharded by user id so unrelated logins/logouts do not contend.
// insert/remove_if remain atomic per key by being atomic per shard.
package registry

import (
	"hash/fnv"
	"sync"
)

// Handle is the enqueue capability the Registry holds for a session. It
// is never the socket — only an id and a way to push a frame or trigger
// eviction — so the Registry and a Session never hold a reference cycle.
type Handle interface {
	// ID returns the process-unique session id.
	ID() string
	// Enqueue attempts a non-blocking send of data to the session's
	// outbound queue. It returns false if the queue is full.
	Enqueue(data []byte) bool
	// EvictedBySuperseding tells the session it lost the registry race
	// to a newer login for the same user; the session should drain and
	// close itself without touching the registry entry again.
	EvictedBySuperseding()
	// Shutdown tells the session the process is stopping; it should drain
	// and close itself the same way a superseded session does, but
	// reporting ReasonShutdown instead.
	Shutdown()
}

const defaultShardCount = 64

// Registry is the sharded UserId -> Handle map.
type Registry struct {
	shards []*shard
	mask   uint32
}

type shard struct {
	mu      sync.Mutex
	entries map[string]Handle
}

func newShard() *shard {
	return &shard{entries: make(map[string]Handle)}
}

// New creates a Registry with the default shard count. The count is
// rounded up to the next power of two so shard selection is a mask, not a
// modulo.
func New() *Registry {
	return NewWithShards(defaultShardCount)
}

// NewWithShards creates a Registry with a caller-chosen shard count.
func NewWithShards(n int) *Registry {
	if n < 1 {
		n = 1
	}
	count := 1
	for count < n {
		count <<= 1
	}
	shards := make([]*shard, count)
	for i := range shards {
		shards[i] = newShard()
	}
	return &Registry{shards: shards, mask: uint32(count - 1)}
}

func (r *Registry) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return r.shards[h.Sum32()&r.mask]
}

// Insert installs handle for userID, atomically. It returns the
// previously-installed handle, if any, for the caller to evict (a second
// login for the same user supersedes the first).
func (r *Registry) Insert(userID string, handle Handle) (previous Handle, hadPrevious bool) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, hadPrevious = s.entries[userID]
	s.entries[userID] = handle
	return previous, hadPrevious
}

// Get performs a non-blocking lookup of the currently-installed handle.
func (r *Registry) Get(userID string) (Handle, bool) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.entries[userID]
	return h, ok
}

// RemoveIf removes the entry for userID only if the currently-installed
// handle's id matches sessionID. This prevents the close path of a
// superseded session from evicting its replacement's entry.
func (r *Registry) RemoveIf(userID, sessionID string) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.entries[userID]; ok && current.ID() == sessionID {
		delete(s.entries, userID)
	}
}

// ForEach invokes fn for each present id in ids, skipping absent ones.
// Each observation reflects registry state at some point during the
// call; the overall call is not a globally consistent snapshot.
func (r *Registry) ForEach(ids []string, fn func(userID string, handle Handle)) {
	for _, id := range ids {
		if h, ok := r.Get(id); ok {
			fn(id, h)
		}
	}
}

// Len returns the number of distinct users currently registered. Used by
// the stats surface only.
func (r *Registry) Len() int {
	total := 0
	for _, s := range r.shards {
		s.mu.Lock()
		total += len(s.entries)
		s.mu.Unlock()
	}
	return total
}

// All returns every handle currently registered, across every shard. Used
// on process shutdown to close every live session; not a globally
// consistent snapshot, the same caveat as ForEach.
func (r *Registry) All() []Handle {
	var out []Handle
	for _, s := range r.shards {
		s.mu.Lock()
		for _, h := range s.entries {
			out = append(out, h)
		}
		s.mu.Unlock()
	}
	return out
}
