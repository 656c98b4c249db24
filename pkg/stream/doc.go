// Package stream adapts concrete transports to the uniform handle the
// realtime core pushes payloads through.
//
// WSStream wraps a gorilla WebSocket connection, SSEStream wraps an HTTP
// response as a text/event-stream, and MemoryStream backs tests. The session
// registry and relay listener only ever see the Stream interface.
package stream
