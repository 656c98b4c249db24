package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/relaykit/pkg/chat"
	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/stream"
)

// Client-to-server actions on the chat socket.
const (
	actionSend   = "send"
	actionTyping = "typing"
	actionRead   = "read"
)

// chatFrame is the inbound client frame on the chat WebSocket. Server pushes
// use the bare wire payloads; only the client-to-server direction is framed
// with an action.
type chatFrame struct {
	Action     string `json:"action"`
	ReceiverID string `json:"receiver_id,omitempty"`
	Content    string `json:"content,omitempty"`
	IsTyping   bool   `json:"is_typing,omitempty"`
	MessageID  string `json:"message_id,omitempty"`
	SenderID   string `json:"sender_id,omitempty"` // original sender, for read receipts
}

func (h *handlers) upgrader() websocket.Upgrader {
	up := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if h.opts.CheckOrigin != nil {
		up.CheckOrigin = h.opts.CheckOrigin
	} else {
		up.CheckOrigin = func(*http.Request) bool { return true }
	}
	return up
}

// chatWS accepts a chat WebSocket for the authenticated user talking to one
// peer, then runs the inbound read loop until the client goes away.
func (h *handlers) chatWS(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	peerID := chi.URLParam(r, "peerID")
	if peerID == "" {
		http.Error(w, "missing peer id", http.StatusBadRequest)
		return
	}

	up := h.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}

	ctx := r.Context()
	st := stream.NewWS(conn)

	sess, err := h.opts.Chat.Connect(ctx, id.UserID, peerID, st)
	if err != nil {
		h.logger.LogAttrs(ctx, slog.LevelWarn, "chat connect failed",
			logger.UserID(id.UserID), logger.Error(err))
		_ = st.Close(ctx)
		return
	}
	// Registry unregistration is idempotent, so this cleans up exactly once
	// even when a failed send already tore the session down.
	defer h.opts.Chat.Disconnect(context.WithoutCancel(ctx), sess)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame chatFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.LogAttrs(ctx, slog.LevelDebug, "malformed chat frame",
				logger.UserID(id.UserID), logger.Error(err))
			continue
		}

		switch frame.Action {
		case actionSend:
			if _, err := h.opts.Chat.Send(ctx, id.UserID, frame.ReceiverID, frame.Content); err != nil {
				if errors.Is(err, chat.ErrDeliveryNotGuaranteed) {
					h.logger.LogAttrs(ctx, slog.LevelWarn, "message stored, live delivery degraded",
						logger.UserID(id.UserID), logger.Error(err))
					continue
				}
				h.logger.LogAttrs(ctx, slog.LevelError, "chat send failed",
					logger.UserID(id.UserID), logger.Error(err))
			}
		case actionTyping:
			if err := h.opts.Chat.SetTyping(ctx, id.UserID, frame.ReceiverID, frame.IsTyping); err != nil {
				h.logger.LogAttrs(ctx, slog.LevelDebug, "typing publish failed",
					logger.UserID(id.UserID), logger.Error(err))
			}
		case actionRead:
			if err := h.opts.Chat.MarkRead(ctx, frame.MessageID, frame.SenderID, id.UserID); err != nil {
				h.logger.LogAttrs(ctx, slog.LevelDebug, "read receipt publish failed",
					logger.UserID(id.UserID), logger.Error(err))
			}
		default:
			h.logger.LogAttrs(ctx, slog.LevelDebug, "unknown chat action",
				slog.String("action", frame.Action))
		}
	}
}
