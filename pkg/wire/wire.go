package wire

import (
	"encoding/json"
	"time"
)

// Status values carried by Status payloads.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Receipt types carried by Receipt payloads.
const (
	ReceiptDelivered = "delivered"
	ReceiptRead      = "read"
)

// ChatMessage is the chat push payload. The field set and JSON keys are part
// of the client protocol and must not change.
type ChatMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	ReceiverID  string    `json:"receiver_id"`
	Content     string    `json:"content"`
	SentAt      time.Time `json:"sent_at"`
	IsRead      bool      `json:"is_read"`
	IsDelivered bool      `json:"is_delivered"`
}

// Status announces a user going online or offline to their chatable peers.
// LastSeen is only set on offline transitions.
type Status struct {
	UserID   string     `json:"user_id"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen"`
}

// Typing is an ephemeral typing indicator. It is never persisted or cached.
type Typing struct {
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

// Receipt acknowledges delivery or reading of a single chat message.
type Receipt struct {
	MessageID   string    `json:"message_id"`
	ReceiptType string    `json:"receipt_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// Notification is the notification push payload. Created by the business
// layer; this core only relays and caches it.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

// Heartbeat keeps idle streams alive through intermediary proxies.
type Heartbeat struct {
	Status string `json:"status"`
}

// NewHeartbeat returns the canonical heartbeat payload.
func NewHeartbeat() Heartbeat {
	return Heartbeat{Status: "alive"}
}

// Marshal encodes a payload as JSON. Timestamps are normalized to UTC before
// encoding so the wire always carries ISO-8601 UTC.
func Marshal(v any) ([]byte, error) {
	switch p := v.(type) {
	case ChatMessage:
		p.SentAt = p.SentAt.UTC()
		return json.Marshal(p)
	case Receipt:
		p.Timestamp = p.Timestamp.UTC()
		return json.Marshal(p)
	case Notification:
		p.CreatedAt = p.CreatedAt.UTC()
		return json.Marshal(p)
	case Status:
		if p.LastSeen != nil {
			utc := p.LastSeen.UTC()
			p.LastSeen = &utc
		}
		return json.Marshal(p)
	default:
		return json.Marshal(v)
	}
}
