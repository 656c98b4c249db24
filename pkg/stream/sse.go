package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// SSEStream adapts an http.ResponseWriter to the Stream interface using the
// text/event-stream framing. Each Send emits one event block and flushes so
// intermediary buffers never hold back a push.
type SSEStream struct {
	w      http.ResponseWriter
	fl     http.Flusher
	mu     sync.Mutex
	closed bool
}

// NewSSE prepares a response writer for server-sent events and writes the
// stream headers. It fails if the writer cannot flush, since unflushed SSE
// never reaches the client.
func NewSSE(w http.ResponseWriter) (*SSEStream, error) {
	fl, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrFlusherUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	return &SSEStream{w: w, fl: fl}, nil
}

// Send writes one SSE event block: an event name line followed by the data
// line. Payloads are single-line JSON, so no data splitting is needed.
func (s *SSEStream) Send(ctx context.Context, event string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		s.closed = true
		return err
	}
	s.fl.Flush()
	return nil
}

// Close marks the stream closed. The HTTP handler owns the response lifetime;
// Close only guarantees no further writes happen.
func (s *SSEStream) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
