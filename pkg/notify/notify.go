package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dmitrymomot/relaykit/pkg/broker"
	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/registry"
	"github.com/dmitrymomot/relaykit/pkg/stream"
	"github.com/dmitrymomot/relaykit/pkg/wire"
)

// DefaultHeartbeatInterval keeps idle SSE connections alive through
// intermediary proxies without client-side polling.
const DefaultHeartbeatInterval = 30 * time.Second

// Service is the notification channel: one-way push of notification events to
// a user's live streams, with a bounded replay cache for events published
// while the user had no stream open.
type Service struct {
	broker            broker.Broker
	registry          *registry.Registry
	presenceTTL       time.Duration
	heartbeatInterval time.Duration
	logger            *slog.Logger
}

// Option configures a notify Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPresenceTTL overrides the SSE presence key TTL.
func WithPresenceTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.presenceTTL = ttl
		}
	}
}

// WithHeartbeatInterval overrides the idle-connection heartbeat period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.heartbeatInterval = d
		}
	}
}

// New creates the notification channel service.
func New(b broker.Broker, reg *registry.Registry, opts ...Option) *Service {
	s := &Service{
		broker:            b,
		registry:          reg,
		presenceTTL:       broker.DefaultPresenceTTL,
		heartbeatInterval: DefaultHeartbeatInterval,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect registers a live notification stream, refreshes presence, and
// replays cached notifications oldest to newest onto the new transport.
func (s *Service) Connect(ctx context.Context, userID string, st stream.Stream) (*registry.Session, error) {
	sess := s.registry.Register(userID, registry.KindNotification, st)

	if err := s.broker.SetPresence(ctx, broker.SSEPresenceKey(userID), s.presenceTTL); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to set sse presence",
			logger.UserID(userID), logger.Error(err))
	}

	cached, err := s.broker.ReadReplay(ctx, broker.ReplayKey(userID))
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to read notification replay cache",
			logger.UserID(userID), logger.Error(err))
		return sess, nil
	}
	for _, payload := range cached {
		if err := st.Send(ctx, stream.EventNotification, payload); err != nil {
			s.registry.Unregister(sess)
			_ = st.Close(ctx)
			return nil, err
		}
	}
	return sess, nil
}

// Disconnect removes one session and clears presence when it was the user's
// last local notification stream. Idempotent.
func (s *Service) Disconnect(ctx context.Context, sess *registry.Session) {
	if !s.registry.Unregister(sess) {
		return
	}
	_ = sess.Stream.Close(ctx)

	if s.registry.CountLocal(sess.UserID, registry.KindNotification) > 0 {
		return
	}
	if err := s.broker.ClearPresence(ctx, broker.SSEPresenceKey(sess.UserID)); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to clear sse presence",
			logger.UserID(sess.UserID), logger.Error(err))
	}
}

// Push publishes an already persisted notification to the user's channel and
// appends it to the replay cache, unconditionally of any live session, so
// reconnecting clients catch up.
//
// On broker failure the notification stays retrievable through the polling
// endpoint only; the error is returned so the caller can log the degradation.
func (s *Service) Push(ctx context.Context, userID string, n wire.Notification) error {
	payload, err := wire.Marshal(n)
	if err != nil {
		return err
	}

	if err := s.broker.Publish(ctx, broker.Channel(broker.ClassNotification, userID), payload); err != nil {
		return err
	}
	if err := s.broker.PushReplay(ctx, broker.ReplayKey(userID), payload); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to cache notification for replay",
			logger.UserID(userID),
			logger.NotificationID(n.ID),
			logger.Error(err))
		return err
	}
	return nil
}

// Delete scrubs the matching entry from the user's replay cache so a deleted
// notification is not replayed on the next reconnect. Deleting an id that is
// not cached is a no-op, which makes the call idempotent.
func (s *Service) Delete(ctx context.Context, notificationID, userID string) error {
	_, err := s.broker.RemoveReplay(ctx, broker.ReplayKey(userID), func(payload []byte) bool {
		var n wire.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return false
		}
		return n.ID == notificationID
	})
	return err
}

// Serve blocks on an open notification session, emitting a heartbeat on every
// idle interval. It returns when the context is cancelled (client went away)
// or the transport dies, and always disconnects the session exactly once.
func (s *Service) Serve(ctx context.Context, sess *registry.Session) error {
	// Cleanup must outlive the request context that triggered it.
	defer s.Disconnect(context.WithoutCancel(ctx), sess)

	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	heartbeat, err := wire.Marshal(wire.NewHeartbeat())
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Heartbeats go around the relay: they are per-connection
			// liveness, not broker events.
			if err := sess.Stream.Send(ctx, stream.EventHeartbeat, heartbeat); err != nil {
				return err
			}
			if err := s.broker.SetPresence(ctx, broker.SSEPresenceKey(sess.UserID), s.presenceTTL); err != nil {
				s.logger.LogAttrs(ctx, slog.LevelDebug, "failed to refresh sse presence",
					logger.UserID(sess.UserID), logger.Error(err))
			}
		}
	}
}
