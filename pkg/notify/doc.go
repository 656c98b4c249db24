// Package notify implements the one-way notification channel: push of
// persisted notification events to a user's live streams, a bounded replay
// cache (50 entries, 24h) for catch-up on reconnect, heartbeats for idle
// connections, and replay-cache scrubbing on delete.
//
// The replay cache is a cache, not a system of record. When the broker is
// unreachable a pushed notification remains retrievable only through the
// polling fallback backed by the Storage collaborator.
package notify
