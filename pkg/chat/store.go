package chat

import (
	"context"

	"github.com/dmitrymomot/relaykit/pkg/wire"
)

// MessageStore is the persistence collaborator for chat. The store, not this
// core, is the system of record; realtime delivery is layered on top of it.
type MessageStore interface {
	// CreateMessage persists a new message and returns the authoritative
	// envelope with the server-assigned id and timestamp.
	CreateMessage(ctx context.Context, senderID, receiverID, content string) (wire.ChatMessage, error)

	// UndeliveredMessages returns messages addressed to userID from peerID
	// that have not been delivered yet, oldest first.
	UndeliveredMessages(ctx context.Context, userID, peerID string) ([]wire.ChatMessage, error)

	// MarkDelivered flips the delivered flag for one message.
	MarkDelivered(ctx context.Context, messageID string) error
}

// ChatableUsers is the business-rules collaborator answering who may chat
// with whom. Status broadcasts are restricted to this set.
type ChatableUsers interface {
	ChatableUsers(ctx context.Context, userID string) ([]string, error)
}

// ChatableFunc adapts a function to the ChatableUsers interface.
type ChatableFunc func(ctx context.Context, userID string) ([]string, error)

func (f ChatableFunc) ChatableUsers(ctx context.Context, userID string) ([]string, error) {
	return f(ctx, userID)
}
