package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWriteTimeout = 10 * time.Second
	closeGracePeriod    = time.Second
)

// WSStream adapts a gorilla WebSocket connection to the Stream interface.
// gorilla permits a single concurrent writer, so all writes are serialized
// behind a mutex.
type WSStream struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
	closed       bool
}

// WSOption configures a WSStream.
type WSOption func(*WSStream)

// WithWriteTimeout bounds every frame write.
func WithWriteTimeout(d time.Duration) WSOption {
	return func(s *WSStream) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewWS wraps an upgraded WebSocket connection.
func NewWS(conn *websocket.Conn, opts ...WSOption) *WSStream {
	s := &WSStream{
		conn:         conn,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send writes the payload as a single text frame. The event name is not
// framed: WebSocket clients distinguish payloads by shape.
func (s *WSStream) Send(ctx context.Context, event string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}

	deadline := time.Now().Add(s.writeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = s.conn.SetWriteDeadline(deadline)

	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.closed = true
		return err
	}
	return nil
}

// Close sends a close frame and tears down the connection. Safe to call more
// than once.
func (s *WSStream) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		// The read side may still hold the connection; close it regardless.
		_ = s.conn.Close()
		return nil
	}
	s.closed = true

	deadline := time.Now().Add(closeGracePeriod)
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return s.conn.Close()
}
