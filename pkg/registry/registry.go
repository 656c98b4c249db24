package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/relaykit/pkg/stream"
)

// Kind distinguishes the two session classes a user can hold.
type Kind string

const (
	KindChat         Kind = "chat"
	KindNotification Kind = "notification"
)

// Session is one process-local live transport for one user. The uuid token,
// not the transport itself, is the registry's identity for the session, so
// equality and removal never depend on transport internals.
//
// A Session belongs to the process that accepted the connection for its whole
// lifetime. It is destroyed on disconnect or unrecoverable send failure.
type Session struct {
	ID        uuid.UUID
	UserID    string
	Kind      Kind
	Stream    stream.Stream
	CreatedAt time.Time
}

// Registry maps user ids to their live local sessions. It holds no
// cross-process knowledge; distributed presence lives in the broker.
//
// A single RWMutex guards the map: registrations arrive from concurrently
// accepted connections while the relay listener reads during fan-out.
type Registry struct {
	mu    sync.RWMutex
	users map[string]map[uuid.UUID]*Session
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		users: make(map[string]map[uuid.UUID]*Session),
	}
}

// Register adds a live stream for the user and returns its session token.
func (r *Registry) Register(userID string, kind Kind, st stream.Stream) *Session {
	sess := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Stream:    st,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.users[userID]
	if !ok {
		sessions = make(map[uuid.UUID]*Session)
		r.users[userID] = sessions
	}
	sessions[sess.ID] = sess
	return sess
}

// Unregister removes one session. It is idempotent: removing an unknown or
// already removed session reports false and has no other effect.
func (r *Registry) Unregister(sess *Session) bool {
	if sess == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.users[sess.UserID]
	if !ok {
		return false
	}
	if _, ok := sessions[sess.ID]; !ok {
		return false
	}
	delete(sessions, sess.ID)
	if len(sessions) == 0 {
		delete(r.users, sess.UserID)
	}
	return true
}

// Handles returns the user's live local sessions of the given kind.
func (r *Registry) Handles(userID string, kind Kind) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.users[userID]
	if len(sessions) == 0 {
		return nil
	}
	out := make([]*Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Kind == kind {
			out = append(out, sess)
		}
	}
	return out
}

// HasLocal reports whether the user has any live session on this process.
func (r *Registry) HasLocal(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// CountLocal returns the number of live sessions of a kind for the user.
func (r *Registry) CountLocal(userID string, kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, sess := range r.users[userID] {
		if sess.Kind == kind {
			count++
		}
	}
	return count
}

// Len returns the total number of live sessions on this process.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, sessions := range r.users {
		total += len(sessions)
	}
	return total
}
