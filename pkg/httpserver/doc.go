// Package httpserver wraps net/http with env-driven configuration and
// graceful shutdown wired to context cancellation and process signals.
package httpserver
