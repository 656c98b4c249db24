package stream

import "context"

// Event names attached to outgoing payloads. WebSocket transports carry the
// bare payload and ignore the event name; SSE transports emit it as the
// text/event-stream event field.
const (
	EventMessage      = "message"
	EventStatus       = "status"
	EventTyping       = "typing"
	EventReceipt      = "receipt"
	EventNotification = "notification"
	EventHeartbeat    = "heartbeat"
)

// Stream is the uniform transport handle the session and channel layers work
// against. Implementations translate Send and Close into transport frames
// (WebSocket messages, SSE events) and must be safe for concurrent use.
//
// A failed Send means the transport is dead; callers treat it as a
// disconnect, never as a retryable error.
type Stream interface {
	Send(ctx context.Context, event string, payload []byte) error
	Close(ctx context.Context) error
}
