package session

import (
	"context"
	"time"

	"github.com/webitel/im-ws-gateway/internal/domain/model"
)

// DirectoryClient is the subset of the external directory a Session needs.
// internal/directory.Client satisfies it; tests supply an in-memory fake.
type DirectoryClient interface {
	Put(ctx context.Context, userID string, record model.DirectoryRecord, ttl time.Duration) error
	Delete(ctx context.Context, userID, ownerSessionID string) error
}
