package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/relaykit/pkg/broker"
	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/registry"
	"github.com/dmitrymomot/relaykit/pkg/stream"
	"github.com/dmitrymomot/relaykit/pkg/wire"
)

// Service is the chat channel: bidirectional message exchange with delivery
// and read receipts, typing indicators, and presence broadcast restricted to
// chatable peers.
//
// Delivery is best effort by design. Every send persists first and publishes
// second; a recipient without a live session catches up through the
// undelivered-messages replay on its next Connect.
type Service struct {
	broker      broker.Broker
	registry    *registry.Registry
	store       MessageStore
	peers       ChatableUsers
	presenceTTL time.Duration
	logger      *slog.Logger
}

// Option configures a chat Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPresenceTTL overrides the presence key TTL.
func WithPresenceTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.presenceTTL = ttl
		}
	}
}

// New creates the chat channel service.
func New(b broker.Broker, reg *registry.Registry, store MessageStore, peers ChatableUsers, opts ...Option) *Service {
	s := &Service{
		broker:      b,
		registry:    reg,
		store:       store,
		peers:       peers,
		presenceTTL: broker.DefaultPresenceTTL,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect registers an accepted transport as a chat session, refreshes the
// user's presence, replays undelivered messages from the peer (marking each
// delivered as it is pushed), and broadcasts an online status to the user's
// chatable peers.
//
// If the transport dies during replay the session is torn down and the error
// returned; the unsent messages stay undelivered in storage.
func (s *Service) Connect(ctx context.Context, userID, peerID string, st stream.Stream) (*registry.Session, error) {
	sess := s.registry.Register(userID, registry.KindChat, st)

	if err := s.broker.SetPresence(ctx, broker.ChatPresenceKey(userID), s.presenceTTL); err != nil {
		// Presence is a liveness hint, never a delivery dependency.
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to set chat presence",
			logger.UserID(userID), logger.Error(err))
	}

	undelivered, err := s.store.UndeliveredMessages(ctx, userID, peerID)
	if err != nil {
		s.registry.Unregister(sess)
		return nil, err
	}
	for _, msg := range undelivered {
		msg.IsDelivered = true
		payload, err := wire.Marshal(msg)
		if err != nil {
			continue
		}
		if err := st.Send(ctx, stream.EventMessage, payload); err != nil {
			s.registry.Unregister(sess)
			_ = st.Close(ctx)
			return nil, err
		}
		if err := s.store.MarkDelivered(ctx, msg.ID); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to mark replayed message delivered",
				logger.MessageID(msg.ID), logger.Error(err))
		}
	}

	s.broadcastStatus(ctx, userID, wire.StatusOnline, nil)
	return sess, nil
}

// Disconnect removes one session. When the user's last local chat session is
// gone it clears the shared presence key and broadcasts an offline status
// with last_seen. Both are best-effort liveness signals: presence is a single
// TTL key per user, not a refcount across processes.
//
// Disconnect is idempotent; racing a read-loop teardown against a failed send
// cleans up exactly once.
func (s *Service) Disconnect(ctx context.Context, sess *registry.Session) {
	if !s.registry.Unregister(sess) {
		return
	}
	_ = sess.Stream.Close(ctx)

	if s.registry.CountLocal(sess.UserID, registry.KindChat) > 0 {
		return
	}

	if err := s.broker.ClearPresence(ctx, broker.ChatPresenceKey(sess.UserID)); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to clear chat presence",
			logger.UserID(sess.UserID), logger.Error(err))
	}
	lastSeen := time.Now().UTC()
	s.broadcastStatus(ctx, sess.UserID, wire.StatusOffline, &lastSeen)
}

// Send persists the message, echoes the authoritative envelope to the
// sender's own open transports, and publishes it to the receiver's channel.
//
// The returned envelope always reflects what was persisted. When the broker
// publish fails the error wraps ErrDeliveryNotGuaranteed: the message is
// stored and will reach the receiver via replay, just not live. The delivered
// flag is settled later by the receiving process's auto-receipt, never by a
// local presence guess.
func (s *Service) Send(ctx context.Context, senderID, receiverID, content string) (wire.ChatMessage, error) {
	msg, err := s.store.CreateMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return wire.ChatMessage{}, err
	}

	payload, err := wire.Marshal(msg)
	if err != nil {
		return msg, err
	}

	// Echo first so the sender's UI gets the server-assigned id/timestamp
	// even if the publish fails.
	for _, sess := range s.registry.Handles(senderID, registry.KindChat) {
		if err := sess.Stream.Send(ctx, stream.EventMessage, payload); err != nil {
			s.registry.Unregister(sess)
			_ = sess.Stream.Close(ctx)
		}
	}

	if err := s.broker.Publish(ctx, broker.Channel(broker.ClassChat, receiverID), payload); err != nil {
		return msg, errors.Join(ErrDeliveryNotGuaranteed, err)
	}
	return msg, nil
}

// SetTyping publishes an ephemeral typing indicator. No persistence, no
// acknowledgement, no error surfaced beyond the broker failure itself.
func (s *Service) SetTyping(ctx context.Context, fromID, toID string, isTyping bool) error {
	payload, err := wire.Marshal(wire.Typing{UserID: fromID, IsTyping: isTyping})
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, broker.Channel(broker.ClassTyping, toID), payload)
}

// MarkRead publishes a read receipt to the original sender's channel. Read
// state persistence stays with the persistence collaborator; this core only
// relays the acknowledgement.
func (s *Service) MarkRead(ctx context.Context, messageID, senderID, receiverID string) error {
	s.logger.LogAttrs(ctx, slog.LevelDebug, "publishing read receipt",
		logger.MessageID(messageID),
		slog.String("sender_id", senderID),
		slog.String("reader_id", receiverID))

	payload, err := wire.Marshal(wire.Receipt{
		MessageID:   messageID,
		ReceiptType: wire.ReceiptRead,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.broker.Publish(ctx, broker.Channel(broker.ClassReceipt, senderID), payload)
}

// broadcastStatus publishes one status event per chatable peer. Failures are
// logged per peer and never abort the remaining broadcasts.
func (s *Service) broadcastStatus(ctx context.Context, userID, status string, lastSeen *time.Time) {
	peerIDs, err := s.peers.ChatableUsers(ctx, userID)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to resolve chatable peers",
			logger.UserID(userID), logger.Error(err))
		return
	}

	payload, err := wire.Marshal(wire.Status{UserID: userID, Status: status, LastSeen: lastSeen})
	if err != nil {
		return
	}
	for _, peerID := range peerIDs {
		if err := s.broker.Publish(ctx, broker.Channel(broker.ClassStatus, peerID), payload); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to publish status event",
				logger.UserID(userID),
				slog.String("peer_id", peerID),
				logger.Error(err))
		}
	}
}
