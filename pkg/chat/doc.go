// Package chat implements the bidirectional chat channel: message exchange
// with delivery and read receipts, typing indicators, undelivered-message
// replay on connect, and online/offline status broadcast restricted to a
// user's chatable peers.
//
// Persistence and chatability rules are collaborators injected through the
// MessageStore and ChatableUsers interfaces. Ordering is guaranteed only for
// a single sender-to-receiver pair on a single connection, where send order
// equals persistence order equals publish order.
package chat
