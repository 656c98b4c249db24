// Package relay runs the one background task per process that makes
// multi-process delivery work: it pattern-subscribes to every event class on
// the broker and fans incoming events out to the local sessions registered on
// this process.
//
// The listener also closes the delivered-state loop for chat. When a chat
// envelope reaches at least one local session, the listener marks the message
// delivered in storage and publishes a delivered receipt to the sender's
// channel, so the sender learns about delivery even when sender and receiver
// live on different processes.
//
// Lifecycle: STOPPED -> STARTING -> LISTENING, with transient broker errors
// looping back to STARTING through a capped-backoff reconnect. A malformed
// event never terminates the loop.
package relay
