package broker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/broker"
)

func TestChannelNaming(t *testing.T) {
	t.Parallel()

	uid := "0b5c9e4e-9d5f-4b4e-8f05-8a9dcdd14a6f"

	assert.Equal(t, "chat:"+uid, broker.Channel(broker.ClassChat, uid))
	assert.Equal(t, "status:"+uid, broker.Channel(broker.ClassStatus, uid))
	assert.Equal(t, "typing:"+uid, broker.Channel(broker.ClassTyping, uid))
	assert.Equal(t, "receipt:"+uid, broker.Channel(broker.ClassReceipt, uid))
	assert.Equal(t, "notification:"+uid, broker.Channel(broker.ClassNotification, uid))

	assert.Equal(t, "chat_online:"+uid, broker.ChatPresenceKey(uid))
	assert.Equal(t, "sse_connected:"+uid, broker.SSEPresenceKey(uid))
	assert.Equal(t, "notification_cache:"+uid, broker.ReplayKey(uid))
}

func TestPatterns(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"chat:*", "status:*", "typing:*", "receipt:*", "notification:*"},
		broker.Patterns())
}

func TestSplitChannel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		channel   string
		wantClass string
		wantUser  string
		wantOK    bool
	}{
		{
			name:      "chat channel",
			channel:   "chat:user-1",
			wantClass: broker.ClassChat,
			wantUser:  "user-1",
			wantOK:    true,
		},
		{
			name:      "notification channel",
			channel:   "notification:user-2",
			wantClass: broker.ClassNotification,
			wantUser:  "user-2",
			wantOK:    true,
		},
		{
			name:    "unknown class",
			channel: "presence:user-1",
			wantOK:  false,
		},
		{
			name:    "missing user id",
			channel: "chat:",
			wantOK:  false,
		},
		{
			name:    "no separator",
			channel: "chat",
			wantOK:  false,
		},
		{
			name:      "uuid with extra colon keeps suffix",
			channel:   "receipt:a:b",
			wantClass: broker.ClassReceipt,
			wantUser:  "a:b",
			wantOK:    true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			class, userID, ok := broker.SplitChannel(tt.channel)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantClass, class)
				assert.Equal(t, tt.wantUser, userID)
			}
		})
	}
}
