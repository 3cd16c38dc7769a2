// Package directory is the external key-value store that maps a user id
// to the node currently holding their active session, so any node in the
// cluster can route a broker message to the right gateway.
package directory

import (
	"context"
	"time"

	"github.com/webitel/im-ws-gateway/internal/domain/model"
)

// Client is the directory surface a Session drives. The Redis-backed
// implementation wraps every call in a circuit breaker so a degraded
// directory never blocks session goroutines indefinitely.
type Client interface {
	// Put upserts the record for userID with the given TTL.
	Put(ctx context.Context, userID string, record model.DirectoryRecord, ttl time.Duration) error
	// Delete removes the record for userID only if its stored session id
	// matches ownerSessionID, so a stale close from a superseded session
	// never deletes a newer login's record.
	Delete(ctx context.Context, userID, ownerSessionID string) error
	// Lookup returns the current record for userID, if any.
	Lookup(ctx context.Context, userID string) (model.DirectoryRecord, bool, error)
}
