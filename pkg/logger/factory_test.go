package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/logger"
)

func TestNew_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(
		logger.WithOutput(&buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithAttr(slog.String("service", "relayd")),
	)

	l.Info("hello", logger.UserID("alice"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "relayd", record["service"])
	assert.Equal(t, "alice", record["user_id"])
}

func TestNew_TextOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))

	l.Info("hello")
	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))

	l.Info("dropped")
	assert.Empty(t, buf.String())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_WithConfig(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(
		logger.WithConfig(logger.Config{Level: "debug", Format: logger.FormatText}),
		logger.WithOutput(&buf),
	)

	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestWithFormat_PanicsOnInvalid(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		logger.New(logger.WithFormat("xml"))
	})
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attr slog.Attr
		key  string
	}{
		{logger.Error(assert.AnError), "error"},
		{logger.UserID("u-1"), "user_id"},
		{logger.MessageID("m-1"), "message_id"},
		{logger.NotificationID("n-1"), "notification_id"},
		{logger.Channel("chat:u-1"), "channel"},
		{logger.SessionID("s-1"), "session_id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.attr.Key)
	}
}
