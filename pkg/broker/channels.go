package broker

import (
	"strings"
	"time"
)

// Event classes. The class is the channel name prefix; together with the
// recipient user id it forms the full channel name, so any process can
// compute the publish target without knowing where the recipient is connected.
const (
	ClassChat         = "chat"
	ClassStatus       = "status"
	ClassTyping       = "typing"
	ClassReceipt      = "receipt"
	ClassNotification = "notification"
)

// Presence key prefixes and replay cache prefix. These names are shared
// cluster-wide state; they must match across every process and deploy.
const (
	chatPresencePrefix = "chat_online:"
	ssePresencePrefix  = "sse_connected:"
	replayPrefix       = "notification_cache:"
)

// Defaults for presence and the notification replay cache.
const (
	DefaultPresenceTTL    = time.Hour
	DefaultReplayCapacity = 50
	DefaultReplayTTL      = 24 * time.Hour
)

// Channel returns the broker channel for an event class and recipient.
func Channel(class, userID string) string {
	return class + ":" + userID
}

// Pattern returns the subscription pattern covering all channels of a class.
func Pattern(class string) string {
	return class + ":*"
}

// Patterns returns the full pattern set a relay listener subscribes to.
func Patterns() []string {
	return []string{
		Pattern(ClassChat),
		Pattern(ClassStatus),
		Pattern(ClassTyping),
		Pattern(ClassReceipt),
		Pattern(ClassNotification),
	}
}

// SplitChannel parses a channel name into its event class and recipient
// user id. It reports false for names outside the known classes.
func SplitChannel(channel string) (class, userID string, ok bool) {
	class, userID, found := strings.Cut(channel, ":")
	if !found || userID == "" {
		return "", "", false
	}
	switch class {
	case ClassChat, ClassStatus, ClassTyping, ClassReceipt, ClassNotification:
		return class, userID, true
	default:
		return "", "", false
	}
}

// ChatPresenceKey returns the presence key for a user's chat connections.
func ChatPresenceKey(userID string) string {
	return chatPresencePrefix + userID
}

// SSEPresenceKey returns the presence key for a user's notification streams.
func SSEPresenceKey(userID string) string {
	return ssePresencePrefix + userID
}

// ChatPresencePrefix returns the prefix covering all chat presence keys.
func ChatPresencePrefix() string { return chatPresencePrefix }

// SSEPresencePrefix returns the prefix covering all SSE presence keys.
func SSEPresencePrefix() string { return ssePresencePrefix }

// ReplayKey returns the replay cache key for a user's notifications.
func ReplayKey(userID string) string {
	return replayPrefix + userID
}
