package notify

import (
	"context"
	"sync"

	"github.com/dmitrymomot/relaykit/pkg/wire"
)

// MemoryStorage is an in-memory Storage for tests and local development.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]wire.Notification // newest first per user
}

// NewMemoryStorage creates an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string][]wire.Notification),
	}
}

// Add records a notification for a user, newest first.
func (s *MemoryStorage) Add(n wire.Notification, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = append([]wire.Notification{n}, s.items[userID]...)
}

func (s *MemoryStorage) List(ctx context.Context, userID string, limit, offset int) ([]wire.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.items[userID]
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]wire.Notification, len(all))
	copy(out, all)
	return out, nil
}
