package realtime

import (
	"errors"
	"net/http"
)

// ErrUnauthorized refuses a connection before any session is created.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is the authenticated caller as produced by the platform's auth
// collaborator. It is a lookup key only; this module never mutates it.
type Identity struct {
	UserID string
	Role   string
}

// Authenticator validates the credentials carried by an incoming request.
// Implementations are provided by the platform (JWT, session cookie, ...);
// this module only consumes the interface.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(r *http.Request) (Identity, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (Identity, error) {
	return f(r)
}

// HeaderAuthenticator trusts the X-User-ID header. Development only: it lets
// relayd run without the platform's auth service in front.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (Identity, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		// SSE via EventSource cannot set headers; accept a query fallback.
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: userID, Role: r.Header.Get("X-User-Role")}, nil
}
