// Package realtime exposes the delivery core over HTTP: a WebSocket endpoint
// for bidirectional chat, an SSE endpoint for notification pushes, a polling
// fallback, and presence counters.
//
// Authentication happens before any upgrade or session registration through
// the injected Authenticator, so a refused connection leaks nothing.
package realtime
