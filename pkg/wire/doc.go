// Package wire defines the JSON payloads exchanged with connected clients and
// published through the broker: chat messages, status and typing events,
// delivery/read receipts, notification pushes, and heartbeats.
//
// The shapes here are a client-facing protocol shared by every process in the
// cluster. Fields, JSON keys, and timestamp formats (ISO-8601 UTC) are frozen
// for interop; extend by adding fields, never by renaming.
package wire
