package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBroker implements Broker on top of a Redis server. Pub/sub carries the
// cross-process fan-out, string keys with TTL carry presence, and bounded
// lists carry the notification replay cache.
//
// The wrapped client is safe for concurrent use; RedisBroker adds no locking
// of its own.
type RedisBroker struct {
	client         redis.UniversalClient
	replayCapacity int
	replayTTL      time.Duration
}

// RedisOption configures a RedisBroker.
type RedisOption func(*RedisBroker)

// WithReplayCapacity overrides the replay list capacity per user.
func WithReplayCapacity(n int) RedisOption {
	return func(b *RedisBroker) {
		if n > 0 {
			b.replayCapacity = n
		}
	}
}

// WithReplayTTL overrides the replay list expiry.
func WithReplayTTL(ttl time.Duration) RedisOption {
	return func(b *RedisBroker) {
		if ttl > 0 {
			b.replayTTL = ttl
		}
	}
}

// NewRedis wraps an established Redis client as a Broker.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *RedisBroker {
	b := &RedisBroker{
		client:         client,
		replayCapacity: DefaultReplayCapacity,
		replayTTL:      DefaultReplayTTL,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (b *RedisBroker) SubscribePatterns(ctx context.Context, patterns ...string) (Subscription, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	ps := b.client.PSubscribe(ctx, patterns...)
	// Receive waits for the subscription confirmation so a dead broker is
	// reported here instead of as a silently empty event stream.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, errors.Join(ErrUnavailable, err)
	}

	sub := &redisSubscription{
		ps:     ps,
		events: make(chan Event),
		done:   make(chan struct{}),
	}
	go sub.forward()
	return sub, nil
}

func (b *RedisBroker) SetPresence(ctx context.Context, key string, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (b *RedisBroker) ClearPresence(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (b *RedisBroker) PresenceExists(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Join(ErrUnavailable, err)
	}
	return n > 0, nil
}

func (b *RedisBroker) CountPresence(ctx context.Context, prefix string) (int, error) {
	keys, err := b.client.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return 0, errors.Join(ErrUnavailable, err)
	}
	return len(keys), nil
}

func (b *RedisBroker) PushReplay(ctx context.Context, key string, payload []byte) error {
	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(b.replayCapacity-1))
	pipe.Expire(ctx, key, b.replayTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (b *RedisBroker) ReadReplay(ctx context.Context, key string) ([][]byte, error) {
	items, err := b.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	// LPush stores newest first; callers expect oldest to newest.
	out := make([][]byte, len(items))
	for i, item := range items {
		out[len(items)-1-i] = []byte(item)
	}
	return out, nil
}

func (b *RedisBroker) RemoveReplay(ctx context.Context, key string, match func(payload []byte) bool) (bool, error) {
	items, err := b.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return false, errors.Join(ErrUnavailable, err)
	}
	for _, item := range items {
		if match([]byte(item)) {
			if err := b.client.LRem(ctx, key, 1, item).Err(); err != nil {
				return false, errors.Join(ErrUnavailable, err)
			}
			return true, nil
		}
	}
	return false, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

// Client exposes the underlying Redis client, mainly for health checks.
func (b *RedisBroker) Client() redis.UniversalClient {
	return b.client
}

type redisSubscription struct {
	ps        *redis.PubSub
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		select {
		case s.events <- Event{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Events() <-chan Event {
	return s.events
}

// Close terminates the subscription. The done channel unblocks forward even
// when the consumer has already stopped reading.
func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
