package notify

import (
	"context"

	"github.com/dmitrymomot/relaykit/pkg/wire"
)

// Storage is the persistence collaborator for notifications. The business
// layer writes notifications before pushing them through this core; List
// backs the polling fallback endpoint clients use when realtime delivery is
// degraded.
type Storage interface {
	List(ctx context.Context, userID string, limit, offset int) ([]wire.Notification, error)
}

// StorageFunc adapts a function to the Storage interface.
type StorageFunc func(ctx context.Context, userID string, limit, offset int) ([]wire.Notification, error)

func (f StorageFunc) List(ctx context.Context, userID string, limit, offset int) ([]wire.Notification, error) {
	return f(ctx, userID, limit, offset)
}
