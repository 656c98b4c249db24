package realtime

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/relaykit/pkg/broker"
	"github.com/dmitrymomot/relaykit/pkg/chat"
	"github.com/dmitrymomot/relaykit/pkg/notify"
)

// RouterOptions wires the realtime endpoints to their services. Auth, Chat,
// and Notify are required; Notifications and Broker each enable an optional
// endpoint when provided.
type RouterOptions struct {
	Auth   Authenticator
	Chat   *chat.Service
	Notify *notify.Service

	// Notifications enables the GET /notifications polling fallback.
	Notifications notify.Storage

	// Broker enables the GET /stats presence counters.
	Broker broker.Broker

	// CheckOrigin overrides the WebSocket origin policy. Default allows all,
	// matching a deployment behind the platform's gateway.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

// Router mounts the realtime surface:
//
//	GET /chat/ws/{peerID}      WebSocket chat with one peer
//	GET /notifications/stream  SSE notification stream
//	GET /notifications         polling fallback (when storage is wired)
//	GET /stats                 presence counters (when broker is wired)
func Router(opts RouterOptions) chi.Router {
	h := newHandlers(opts)

	r := chi.NewRouter()
	r.Route("/chat", func(cr chi.Router) {
		cr.Get("/ws/{peerID}", h.chatWS)
	})
	r.Route("/notifications", func(nr chi.Router) {
		nr.Get("/stream", h.notificationStream)
		if opts.Notifications != nil {
			nr.Get("/", h.listNotifications)
		}
	})
	if opts.Broker != nil {
		r.Get("/stats", h.stats)
	}
	return r
}

type handlers struct {
	opts   RouterOptions
	logger *slog.Logger
}

func newHandlers(opts RouterOptions) *handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &handlers{opts: opts, logger: logger}
}

func (h *handlers) authenticate(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, err := h.opts.Auth.Authenticate(r)
	if err != nil {
		// Refused before any session or upgrade: no resource to leak.
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return Identity{}, false
	}
	return id, true
}
