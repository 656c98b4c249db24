package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/relaykit"
	"github.com/dmitrymomot/relaykit/modules/realtime"
	"github.com/dmitrymomot/relaykit/pkg/broker"
	"github.com/dmitrymomot/relaykit/pkg/chat"
	"github.com/dmitrymomot/relaykit/pkg/config"
	"github.com/dmitrymomot/relaykit/pkg/httpserver"
	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/notify"
	"github.com/dmitrymomot/relaykit/pkg/relay"
)

// relayd is the reference realtime delivery daemon. It wires the core with
// in-memory collaborator implementations; a production deployment injects the
// platform's persistence, auth, and business-rule services instead.
func main() {
	ctx := context.Background()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.New(
		logger.WithConfig(logCfg),
		logger.WithAttr(slog.String("service", "relayd")),
	)
	logger.SetAsDefault(log)

	if err := run(ctx, log); err != nil {
		log.LogAttrs(ctx, slog.LevelError, "relayd exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// channelsConfig tunes the chat and notification channel services.
type channelsConfig struct {
	PresenceTTL       time.Duration `env:"PRESENCE_TTL" envDefault:"1h"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s"`
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		brokerCfg   broker.Config
		relayCfg    relay.Config
		serverCfg   httpserver.Config
		channelsCfg channelsConfig
	)
	config.MustLoad(&brokerCfg)
	config.MustLoad(&relayCfg)
	config.MustLoad(&serverCfg)
	config.MustLoad(&channelsCfg)

	b, err := broker.Connect(ctx, brokerCfg)
	if err != nil {
		return err
	}
	defer b.Close()

	messages := chat.NewMemoryMessageStore()
	notifications := notify.NewMemoryStorage()

	svc := relaykit.New(relaykit.Deps{
		Broker:        b,
		MessageStore:  messages,
		ChatableUsers: chat.ChatableFunc(messages.Correspondents),
		Logger:        log,
		RelayConfig:   relayCfg,
		ChatOptions:   []chat.Option{chat.WithPresenceTTL(channelsCfg.PresenceTTL)},
		NotifyOpts: []notify.Option{
			notify.WithPresenceTTL(channelsCfg.PresenceTTL),
			notify.WithHeartbeatInterval(channelsCfg.HeartbeatInterval),
		},
	})
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Stop(context.Background()) }()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := broker.Healthcheck(b.Client())(req.Context()); err != nil {
			http.Error(w, "broker unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Mount("/realtime", realtime.Router(realtime.RouterOptions{
		Auth:          realtime.HeaderAuthenticator{},
		Chat:          svc.Chat,
		Notify:        svc.Notify,
		Notifications: notifications,
		Broker:        b,
		Logger:        log,
	}))

	return httpserver.New(serverCfg, httpserver.WithLogger(log)).Run(ctx, r)
}
