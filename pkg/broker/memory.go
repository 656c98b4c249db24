package broker

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryBroker is an in-process Broker for tests and single-process
// deployments. Pattern matching, presence TTLs, and replay trimming follow
// the Redis semantics closely enough that the relay and channel layers
// behave identically against either implementation.
//
// All methods are safe for concurrent use.
type MemoryBroker struct {
	mu             sync.RWMutex
	subs           map[*memorySubscription]struct{}
	presence       map[string]time.Time
	replay         map[string]*replayList
	replayCapacity int
	replayTTL      time.Duration
	closed         bool
}

type replayList struct {
	items     [][]byte // newest first, like LPUSH
	expiresAt time.Time
}

// MemoryOption configures a MemoryBroker.
type MemoryOption func(*MemoryBroker)

// WithMemoryReplayCapacity overrides the replay list capacity per user.
func WithMemoryReplayCapacity(n int) MemoryOption {
	return func(b *MemoryBroker) {
		if n > 0 {
			b.replayCapacity = n
		}
	}
}

// WithMemoryReplayTTL overrides the replay list expiry.
func WithMemoryReplayTTL(ttl time.Duration) MemoryOption {
	return func(b *MemoryBroker) {
		if ttl > 0 {
			b.replayTTL = ttl
		}
	}
}

// NewMemory creates an in-memory broker.
func NewMemory(opts ...MemoryOption) *MemoryBroker {
	b := &MemoryBroker{
		subs:           make(map[*memorySubscription]struct{}),
		presence:       make(map[string]time.Time),
		replay:         make(map[string]*replayList),
		replayCapacity: DefaultReplayCapacity,
		replayTTL:      DefaultReplayTTL,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrUnavailable
	}

	for sub := range b.subs {
		if sub.matches(channel) {
			sub.send(Event{Channel: channel, Payload: payload})
		}
	}
	return nil
}

func (b *MemoryBroker) SubscribePatterns(ctx context.Context, patterns ...string) (Subscription, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrUnavailable
	}

	sub := &memorySubscription{
		broker:   b,
		patterns: patterns,
		events:   make(chan Event, 256),
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBroker) SetPresence(ctx context.Context, key string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrUnavailable
	}
	b.presence[key] = time.Now().Add(ttl)
	return nil
}

func (b *MemoryBroker) ClearPresence(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrUnavailable
	}
	delete(b.presence, key)
	return nil
}

func (b *MemoryBroker) PresenceExists(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return false, ErrUnavailable
	}
	expiry, ok := b.presence[key]
	return ok && time.Now().Before(expiry), nil
}

func (b *MemoryBroker) CountPresence(ctx context.Context, prefix string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrUnavailable
	}
	now := time.Now()
	count := 0
	for key, expiry := range b.presence {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix && now.Before(expiry) {
			count++
		}
	}
	return count, nil
}

func (b *MemoryBroker) PushReplay(ctx context.Context, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrUnavailable
	}

	list := b.replay[key]
	if list == nil || time.Now().After(list.expiresAt) {
		list = &replayList{}
		b.replay[key] = list
	}

	item := make([]byte, len(payload))
	copy(item, payload)
	list.items = append([][]byte{item}, list.items...)
	if len(list.items) > b.replayCapacity {
		list.items = list.items[:b.replayCapacity]
	}
	list.expiresAt = time.Now().Add(b.replayTTL)
	return nil
}

func (b *MemoryBroker) ReadReplay(ctx context.Context, key string) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrUnavailable
	}

	list := b.replay[key]
	if list == nil || time.Now().After(list.expiresAt) {
		return nil, nil
	}

	out := make([][]byte, len(list.items))
	for i, item := range list.items {
		out[len(list.items)-1-i] = item
	}
	return out, nil
}

func (b *MemoryBroker) RemoveReplay(ctx context.Context, key string, match func(payload []byte) bool) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, ErrUnavailable
	}

	list := b.replay[key]
	if list == nil || time.Now().After(list.expiresAt) {
		return false, nil
	}
	for i, item := range list.items {
		if match(item) {
			list.items = append(list.items[:i], list.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		sub.closeLocked()
	}
	clear(b.subs)
	return nil
}

func (b *MemoryBroker) unsubscribe(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

type memorySubscription struct {
	broker   *MemoryBroker
	patterns []string
	events   chan Event
	mu       sync.Mutex
	closed   bool
}

func (s *memorySubscription) matches(channel string) bool {
	for _, pattern := range s.patterns {
		if ok, err := path.Match(pattern, channel); err == nil && ok {
			return true
		}
	}
	return false
}

// send drops the event if the subscriber's buffer is full, mirroring the
// at-most-once semantics of Redis pub/sub toward slow consumers.
func (s *memorySubscription) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *memorySubscription) Events() <-chan Event {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.broker.unsubscribe(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// closeLocked is called by the broker with its own lock held.
func (s *memorySubscription) closeLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
}
