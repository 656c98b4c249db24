package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/relaykit/pkg/wire"
)

// MemoryMessageStore is an in-memory MessageStore for tests and local
// development. Production deployments inject the platform's persistence
// layer instead.
type MemoryMessageStore struct {
	mu       sync.RWMutex
	messages map[string]*wire.ChatMessage
	order    []string // insertion order, doubles as sent_at ordering
}

// NewMemoryMessageStore creates an empty store.
func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{
		messages: make(map[string]*wire.ChatMessage),
	}
}

func (s *MemoryMessageStore) CreateMessage(ctx context.Context, senderID, receiverID, content string) (wire.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &wire.ChatMessage{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		SentAt:     time.Now().UTC(),
	}
	s.messages[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	return *msg, nil
}

func (s *MemoryMessageStore) UndeliveredMessages(ctx context.Context, userID, peerID string) ([]wire.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []wire.ChatMessage
	for _, id := range s.order {
		msg := s.messages[id]
		if msg.ReceiverID == userID && msg.SenderID == peerID && !msg.IsDelivered {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (s *MemoryMessageStore) MarkDelivered(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageID]
	if !ok {
		return ErrMessageNotFound
	}
	msg.IsDelivered = true
	return nil
}

// Correspondents returns the distinct users the given user has exchanged
// messages with. It backs the chatable-users rule in development setups where
// the platform's business rules are not wired in.
func (s *MemoryMessageStore) Correspondents(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, id := range s.order {
		msg := s.messages[id]
		var peer string
		switch userID {
		case msg.SenderID:
			peer = msg.ReceiverID
		case msg.ReceiverID:
			peer = msg.SenderID
		default:
			continue
		}
		if _, ok := seen[peer]; !ok {
			seen[peer] = struct{}{}
			out = append(out, peer)
		}
	}
	return out, nil
}

// Get returns a stored message by id; test helper.
func (s *MemoryMessageStore) Get(messageID string) (wire.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[messageID]
	if !ok {
		return wire.ChatMessage{}, false
	}
	return *msg, true
}
