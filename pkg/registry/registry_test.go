package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/registry"
	"github.com/dmitrymomot/relaykit/pkg/stream"
)

func TestRegistry_RegisterAndHandles(t *testing.T) {
	t.Parallel()

	reg := registry.New()

	chatA := reg.Register("alice", registry.KindChat, stream.NewMemory())
	chatB := reg.Register("alice", registry.KindChat, stream.NewMemory())
	notif := reg.Register("alice", registry.KindNotification, stream.NewMemory())

	require.NotEqual(t, chatA.ID, chatB.ID, "each registration gets its own token")
	assert.Equal(t, "alice", chatA.UserID)
	assert.False(t, chatA.CreatedAt.IsZero())

	handles := reg.Handles("alice", registry.KindChat)
	assert.Len(t, handles, 2)
	for _, h := range handles {
		assert.Equal(t, registry.KindChat, h.Kind)
	}

	handles = reg.Handles("alice", registry.KindNotification)
	require.Len(t, handles, 1)
	assert.Equal(t, notif.ID, handles[0].ID)

	assert.Nil(t, reg.Handles("bob", registry.KindChat))
	assert.Equal(t, 3, reg.Len())
}

func TestRegistry_UnregisterIdempotent(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	sess := reg.Register("alice", registry.KindChat, stream.NewMemory())

	assert.True(t, reg.Unregister(sess))
	assert.False(t, reg.Unregister(sess), "second removal is a no-op")
	assert.False(t, reg.Unregister(nil))

	assert.False(t, reg.HasLocal("alice"))
	assert.Zero(t, reg.Len())
}

func TestRegistry_CountLocal(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Register("alice", registry.KindChat, stream.NewMemory())
	reg.Register("alice", registry.KindChat, stream.NewMemory())
	sess := reg.Register("alice", registry.KindNotification, stream.NewMemory())

	assert.Equal(t, 2, reg.CountLocal("alice", registry.KindChat))
	assert.Equal(t, 1, reg.CountLocal("alice", registry.KindNotification))
	assert.True(t, reg.HasLocal("alice"))

	reg.Unregister(sess)
	assert.Equal(t, 0, reg.CountLocal("alice", registry.KindNotification))
	assert.True(t, reg.HasLocal("alice"), "chat sessions keep the user local")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	reg := registry.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i%4)
			sess := reg.Register(userID, registry.KindChat, stream.NewMemory())
			reg.Handles(userID, registry.KindChat)
			reg.Unregister(sess)
		}()
	}
	wg.Wait()

	assert.Zero(t, reg.Len())
}
