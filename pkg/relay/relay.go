package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/relaykit/pkg/broker"
	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/registry"
	"github.com/dmitrymomot/relaykit/pkg/stream"
	"github.com/dmitrymomot/relaykit/pkg/wire"
)

// State of the listener lifecycle.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	default:
		return "stopped"
	}
}

// DeliveryMarker flips a chat message's delivered flag in storage. It is the
// narrow slice of the persistence collaborator the listener needs; the chat
// message store satisfies it.
type DeliveryMarker interface {
	MarkDelivered(ctx context.Context, messageID string) error
}

// Config bounds the listener's reconnect and shutdown behavior.
type Config struct {
	ReconnectMinDelay time.Duration `env:"RELAY_RECONNECT_MIN_DELAY" envDefault:"500ms"`
	ReconnectMaxDelay time.Duration `env:"RELAY_RECONNECT_MAX_DELAY" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"RELAY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func defaultConfig() Config {
	return Config{
		ReconnectMinDelay: 500 * time.Millisecond,
		ReconnectMaxDelay: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Listener is the single background task per process that subscribes to the
// broker's channel patterns and redistributes incoming events to the local
// sessions found in the registry.
//
// On losing the broker it reconnects in an iterative backoff loop; events
// published during the outage are lost to realtime delivery and recovered via
// the undelivered-message and replay-cache paths on reconnect.
type Listener struct {
	broker   broker.Broker
	registry *registry.Registry
	marker   DeliveryMarker
	logger   *slog.Logger
	cfg      Config

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Listener.
type Option func(*Listener)

// WithLogger sets the listener's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Listener) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithConfig overrides the reconnect/shutdown bounds.
func WithConfig(cfg Config) Option {
	return func(r *Listener) {
		if cfg.ReconnectMinDelay > 0 {
			r.cfg.ReconnectMinDelay = cfg.ReconnectMinDelay
		}
		if cfg.ReconnectMaxDelay > 0 {
			r.cfg.ReconnectMaxDelay = cfg.ReconnectMaxDelay
		}
		if cfg.ShutdownTimeout > 0 {
			r.cfg.ShutdownTimeout = cfg.ShutdownTimeout
		}
	}
}

// WithDeliveryMarker wires the storage hook that records delivered state when
// a chat envelope reaches at least one local session.
func WithDeliveryMarker(m DeliveryMarker) Option {
	return func(r *Listener) {
		r.marker = m
	}
}

// New creates a listener bound to a broker and this process's registry.
func New(b broker.Broker, reg *registry.Registry, opts ...Option) *Listener {
	r := &Listener{
		broker:   b,
		registry: reg,
		logger:   slog.Default(),
		cfg:      defaultConfig(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Listener) State() State {
	return State(r.state.Load())
}

// Start launches the background listening task. It returns ErrAlreadyStarted
// if the listener is not stopped.
func (r *Listener) Start(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(runCtx)
	return nil
}

// Stop cancels the listening task and waits for it to release the broker
// subscription, bounded by the shutdown timeout and the caller's context.
func (r *Listener) Stop(ctx context.Context) error {
	if r.State() == StateStopped {
		return nil
	}
	r.cancel()

	timer := time.NewTimer(r.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-r.done:
		return nil
	case <-timer.C:
		return ErrShutdownTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run owns the subscribe/consume loop. Reconnection is an iterative retry
// with capped exponential backoff, never recursion, so broker flapping cannot
// grow the stack.
func (r *Listener) run(ctx context.Context) {
	defer close(r.done)
	defer r.state.Store(int32(StateStopped))

	backoff := retry.WithCappedDuration(r.cfg.ReconnectMaxDelay, retry.NewExponential(r.cfg.ReconnectMinDelay))

	_ = retry.Do(ctx, backoff, func(ctx context.Context) error {
		r.state.Store(int32(StateStarting))

		sub, err := r.broker.SubscribePatterns(ctx, broker.Patterns()...)
		if err != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "relay subscribe failed, will retry",
				logger.Error(err))
			return retry.RetryableError(err)
		}
		defer sub.Close()

		r.state.Store(int32(StateListening))
		r.logger.LogAttrs(ctx, slog.LevelInfo, "relay listening",
			slog.Any("patterns", broker.Patterns()))

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-sub.Events():
				if !ok {
					// Subscription dropped underneath us; resubscribe.
					r.logger.LogAttrs(ctx, slog.LevelWarn, "relay subscription lost, reconnecting")
					return retry.RetryableError(broker.ErrSubscriptionClosed)
				}
				r.handle(ctx, ev)
			}
		}
	})
}

// handle fans one broker event out to matching local sessions. A malformed
// event is logged and skipped; nothing here may terminate the loop.
func (r *Listener) handle(ctx context.Context, ev broker.Event) {
	class, userID, ok := broker.SplitChannel(ev.Channel)
	if !ok {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "relay skipping unknown channel",
			logger.Channel(ev.Channel))
		return
	}

	if !r.registry.HasLocal(userID) {
		return
	}

	kind := registry.KindChat
	if class == broker.ClassNotification {
		kind = registry.KindNotification
	}

	delivered := 0
	for _, sess := range r.registry.Handles(userID, kind) {
		if err := sess.Stream.Send(ctx, eventName(class), ev.Payload); err != nil {
			// Dead handle: drop it from the registry and close best effort.
			r.registry.Unregister(sess)
			_ = sess.Stream.Close(ctx)
			r.logger.LogAttrs(ctx, slog.LevelDebug, "relay dropped dead session",
				logger.UserID(userID),
				logger.SessionID(sess.ID.String()),
				logger.Error(err))
			continue
		}
		delivered++
	}

	if class == broker.ClassChat && delivered > 0 {
		r.acknowledgeDelivery(ctx, ev.Payload)
	}
}

// acknowledgeDelivery marks the chat message delivered in storage and
// publishes the automatic delivered receipt back to the sender's channel.
// This is what makes delivered state correct across processes: the process
// hosting the receiver, not the sender's local presence check, decides.
func (r *Listener) acknowledgeDelivery(ctx context.Context, payload []byte) {
	var msg wire.ChatMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.ID == "" || msg.SenderID == "" {
		r.logger.LogAttrs(ctx, slog.LevelDebug, "relay cannot parse chat payload for receipt",
			logger.Error(err))
		return
	}

	if r.marker != nil {
		if err := r.marker.MarkDelivered(ctx, msg.ID); err != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to mark message delivered",
				logger.MessageID(msg.ID),
				logger.Error(err))
		}
	}

	receipt, err := wire.Marshal(wire.Receipt{
		MessageID:   msg.ID,
		ReceiptType: wire.ReceiptDelivered,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := r.broker.Publish(ctx, broker.Channel(broker.ClassReceipt, msg.SenderID), receipt); err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish delivered receipt",
			logger.MessageID(msg.ID),
			logger.Error(err))
	}
}

func eventName(class string) string {
	switch class {
	case broker.ClassChat:
		return stream.EventMessage
	case broker.ClassStatus:
		return stream.EventStatus
	case broker.ClassTyping:
		return stream.EventTyping
	case broker.ClassReceipt:
		return stream.EventReceipt
	case broker.ClassNotification:
		return stream.EventNotification
	default:
		return class
	}
}
