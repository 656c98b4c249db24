package broker

import (
	"context"
	"time"
)

// Event is a single message received from a pattern subscription.
type Event struct {
	Channel string
	Payload []byte
}

// Subscription is a live pattern subscription. Events returns a channel that
// is closed when the subscription terminates, either via Close or because the
// underlying connection was lost.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Broker is the cross-process coordination contract: channel publish, pattern
// subscribe, TTL-based presence keys, and a bounded replay list per user.
//
// Publish is best effort. A failed publish is a delivery failure for that
// single event only; the persistence layer remains the system of record.
type Broker interface {
	// Publish sends payload to every subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// SubscribePatterns subscribes to one or more glob patterns (e.g. "chat:*").
	SubscribePatterns(ctx context.Context, patterns ...string) (Subscription, error)

	// SetPresence marks key as present for ttl. Refreshing an existing key
	// resets its ttl.
	SetPresence(ctx context.Context, key string, ttl time.Duration) error

	// ClearPresence removes key. Clearing a missing key is not an error.
	ClearPresence(ctx context.Context, key string) error

	// PresenceExists reports whether key is currently present.
	PresenceExists(ctx context.Context, key string) (bool, error)

	// CountPresence returns the number of live presence keys with the prefix.
	CountPresence(ctx context.Context, prefix string) (int, error)

	// PushReplay prepends payload to the replay list at key, trims the list
	// to the configured capacity, and resets the list expiry.
	PushReplay(ctx context.Context, key string, payload []byte) error

	// ReadReplay returns the replay list at key ordered oldest to newest.
	ReadReplay(ctx context.Context, key string) ([][]byte, error)

	// RemoveReplay deletes the first replay entry matching the predicate.
	// It reports whether an entry was removed.
	RemoveReplay(ctx context.Context, key string, match func(payload []byte) bool) (bool, error)

	// Close releases broker resources. Open subscriptions are terminated.
	Close() error
}
