package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

// MessageID records the chat message identifier under the key "message_id".
func MessageID(id string) slog.Attr {
	return slog.String("message_id", id)
}

// NotificationID records the notification identifier.
func NotificationID(id string) slog.Attr {
	return slog.String("notification_id", id)
}

// Channel records a broker channel name under the key "channel".
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// SessionID records the session token under the key "session_id".
func SessionID(id string) slog.Attr {
	return slog.String("session_id", id)
}
