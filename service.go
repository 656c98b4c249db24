package relaykit

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/relaykit/pkg/broker"
	"github.com/dmitrymomot/relaykit/pkg/chat"
	"github.com/dmitrymomot/relaykit/pkg/notify"
	"github.com/dmitrymomot/relaykit/pkg/registry"
	"github.com/dmitrymomot/relaykit/pkg/relay"
)

// Deps are the collaborators a Service is built from. Broker, MessageStore,
// and ChatableUsers are required; the rest default sensibly.
type Deps struct {
	Broker        broker.Broker
	MessageStore  chat.MessageStore
	ChatableUsers chat.ChatableUsers

	Logger      *slog.Logger
	RelayConfig relay.Config
	ChatOptions []chat.Option
	NotifyOpts  []notify.Option
}

// Service is the process-wide realtime core: the session registry, the relay
// listener, and the chat and notification channels, constructed explicitly
// and torn down together. There are no package-level singletons; handlers
// receive the Service by injection.
type Service struct {
	Registry *registry.Registry
	Relay    *relay.Listener
	Chat     *chat.Service
	Notify   *notify.Service
}

// New wires the core together. The broker's lifetime belongs to the caller;
// Stop stops the relay listener but does not close the broker.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()

	chatOpts := append([]chat.Option{chat.WithLogger(logger)}, deps.ChatOptions...)
	notifyOpts := append([]notify.Option{notify.WithLogger(logger)}, deps.NotifyOpts...)

	return &Service{
		Registry: reg,
		Relay: relay.New(deps.Broker, reg,
			relay.WithLogger(logger),
			relay.WithConfig(deps.RelayConfig),
			relay.WithDeliveryMarker(deps.MessageStore),
		),
		Chat:   chat.New(deps.Broker, reg, deps.MessageStore, deps.ChatableUsers, chatOpts...),
		Notify: notify.New(deps.Broker, reg, notifyOpts...),
	}
}

// Start launches the relay listener. Call once at process startup.
func (s *Service) Start(ctx context.Context) error {
	return s.Relay.Start(ctx)
}

// Stop cancels the relay listener and waits for it to release its broker
// subscription, bounded by the relay shutdown timeout.
func (s *Service) Stop(ctx context.Context) error {
	return s.Relay.Stop(ctx)
}
