package stream

import (
	"context"
	"sync"
)

// SentEvent records one Send call on a MemoryStream.
type SentEvent struct {
	Event   string
	Payload []byte
}

// MemoryStream is an in-memory Stream for tests. It records everything sent
// to it and can be told to fail, which lets tests exercise the dead-handle
// cleanup paths.
type MemoryStream struct {
	mu      sync.Mutex
	sent    []SentEvent
	sendErr error
	closed  bool
}

// NewMemory creates an empty memory stream.
func NewMemory() *MemoryStream {
	return &MemoryStream{}
}

func (s *MemoryStream) Send(ctx context.Context, event string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if s.sendErr != nil {
		return s.sendErr
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.sent = append(s.sent, SentEvent{Event: event, Payload: buf})
	return nil
}

func (s *MemoryStream) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// FailWith makes every subsequent Send return err.
func (s *MemoryStream) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = err
}

// Sent returns a copy of everything sent so far.
func (s *MemoryStream) Sent() []SentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentEvent, len(s.sent))
	copy(out, s.sent)
	return out
}

// Closed reports whether Close has been called.
func (s *MemoryStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
