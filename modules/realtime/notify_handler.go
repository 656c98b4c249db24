package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/relaykit/pkg/broker"
	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/stream"
)

// notificationStream serves the SSE notification stream: replay of cached
// notifications, then live pushes via the relay, with heartbeats in between.
func (h *handlers) notificationStream(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	st, err := stream.NewSSE(w)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	sess, err := h.opts.Notify.Connect(ctx, id.UserID, st)
	if err != nil {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "notification connect failed",
			logger.UserID(id.UserID), logger.Error(err))
		return
	}

	// Serve blocks until the client disconnects and owns session teardown.
	if err := h.opts.Notify.Serve(ctx, sess); err != nil {
		h.logger.LogAttrs(ctx, slog.LevelDebug, "notification stream ended",
			logger.UserID(id.UserID), logger.Error(err))
	}
}

// listNotifications is the polling fallback backed by the persistence
// collaborator, for clients that cannot hold a stream open.
func (h *handlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	items, err := h.opts.Notifications.List(r.Context(), id.UserID, limit, offset)
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "failed to list notifications",
			logger.UserID(id.UserID), logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// stats reports cluster-wide presence counters from the broker.
func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chatOnline, err := h.opts.Broker.CountPresence(ctx, broker.ChatPresencePrefix())
	if err != nil {
		http.Error(w, "broker unavailable", http.StatusServiceUnavailable)
		return
	}
	sseConnected, err := h.opts.Broker.CountPresence(ctx, broker.SSEPresencePrefix())
	if err != nil {
		http.Error(w, "broker unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"chat_online":   chatOnline,
		"sse_connected": sseConnected,
	})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
