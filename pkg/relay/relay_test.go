package relay_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/broker"
	"github.com/dmitrymomot/relaykit/pkg/chat"
	"github.com/dmitrymomot/relaykit/pkg/relay"
	"github.com/dmitrymomot/relaykit/pkg/registry"
	"github.com/dmitrymomot/relaykit/pkg/stream"
	"github.com/dmitrymomot/relaykit/pkg/wire"
)

func startListener(t *testing.T, b broker.Broker, reg *registry.Registry, opts ...relay.Option) *relay.Listener {
	t.Helper()

	l := relay.New(b, reg, opts...)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop(context.Background()) })

	require.Eventually(t, func() bool {
		return l.State() == relay.StateListening
	}, time.Second, 5*time.Millisecond, "listener never reached the listening state")
	return l
}

func TestListener_Lifecycle(t *testing.T) {
	t.Parallel()

	b := broker.NewMemory()
	defer b.Close()

	l := relay.New(b, registry.New())
	assert.Equal(t, relay.StateStopped, l.State())

	require.NoError(t, l.Start(context.Background()))
	assert.ErrorIs(t, l.Start(context.Background()), relay.ErrAlreadyStarted)

	require.NoError(t, l.Stop(context.Background()))
	require.Eventually(t, func() bool {
		return l.State() == relay.StateStopped
	}, time.Second, 5*time.Millisecond)

	// A stopped listener can be started again.
	require.NoError(t, l.Start(context.Background()))
	require.NoError(t, l.Stop(context.Background()))
}

func TestListener_FansOutToLocalSessions(t *testing.T) {
	t.Parallel()

	b := broker.NewMemory()
	defer b.Close()

	reg := registry.New()
	st := stream.NewMemory()
	reg.Register("bob", registry.KindChat, st)
	other := stream.NewMemory()
	reg.Register("someone-else", registry.KindChat, other)

	startListener(t, b, reg)

	payload, err := wire.Marshal(wire.Typing{UserID: "alice", IsTyping: true})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), broker.Channel(broker.ClassTyping, "bob"), payload))

	require.Eventually(t, func() bool {
		return len(st.Sent()) == 1
	}, time.Second, 5*time.Millisecond)

	sent := st.Sent()
	assert.Equal(t, stream.EventTyping, sent[0].Event)
	assert.JSONEq(t, string(payload), string(sent[0].Payload))
	assert.Empty(t, other.Sent(), "events stay on the addressed user's sessions")
}

func TestListener_ChatDeliveryAcrossProcesses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := broker.NewMemory()
	defer b.Close()

	store := chat.NewMemoryMessageStore()

	// Process A hosts the sender, process B the receiver. Each process has its
	// own registry and listener; only the broker is shared.
	regA, regB := registry.New(), registry.New()
	senderStream := stream.NewMemory()
	regA.Register("alice", registry.KindChat, senderStream)
	receiverStream := stream.NewMemory()
	regB.Register("bob", registry.KindChat, receiverStream)

	startListener(t, b, regA, relay.WithDeliveryMarker(store))
	startListener(t, b, regB, relay.WithDeliveryMarker(store))

	msg, err := store.CreateMessage(ctx, "alice", "bob", "hello")
	require.NoError(t, err)
	payload, err := wire.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, broker.Channel(broker.ClassChat, "bob"), payload))

	// The receiver's process pushes the envelope to bob's stream.
	require.Eventually(t, func() bool {
		return len(receiverStream.Sent()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, stream.EventMessage, receiverStream.Sent()[0].Event)

	// That same process marks storage delivered and publishes the automatic
	// delivered receipt, which the sender's process relays to alice.
	require.Eventually(t, func() bool {
		stored, ok := store.Get(msg.ID)
		return ok && stored.IsDelivered
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(senderStream.Sent()) == 1
	}, time.Second, 5*time.Millisecond)

	var receipt wire.Receipt
	sent := senderStream.Sent()
	assert.Equal(t, stream.EventReceipt, sent[0].Event)
	require.NoError(t, json.Unmarshal(sent[0].Payload, &receipt))
	assert.Equal(t, msg.ID, receipt.MessageID)
	assert.Equal(t, wire.ReceiptDelivered, receipt.ReceiptType)
}

func TestListener_NoReceiptWithoutLiveSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := broker.NewMemory()
	defer b.Close()

	store := chat.NewMemoryMessageStore()
	startListener(t, b, registry.New(), relay.WithDeliveryMarker(store))

	msg, err := store.CreateMessage(ctx, "alice", "bob", "hello")
	require.NoError(t, err)
	payload, err := wire.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, broker.Channel(broker.ClassChat, "bob"), payload))

	time.Sleep(50 * time.Millisecond)
	stored, ok := store.Get(msg.ID)
	require.True(t, ok)
	assert.False(t, stored.IsDelivered, "delivered is settled by a live recipient, never assumed")
}

func TestListener_MalformedEventDoesNotStopTheLoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := broker.NewMemory()
	defer b.Close()

	reg := registry.New()
	st := stream.NewMemory()
	reg.Register("bob", registry.KindChat, st)

	startListener(t, b, reg)

	// Not parseable as a chat envelope; fan-out still happens and the
	// receipt step is skipped without killing the listener.
	require.NoError(t, b.Publish(ctx, broker.Channel(broker.ClassChat, "bob"), []byte("not-json")))
	// No user id at all; dropped before fan-out.
	require.NoError(t, b.Publish(ctx, "chat:", []byte("{}")))

	payload, err := wire.Marshal(wire.Typing{UserID: "alice", IsTyping: true})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, broker.Channel(broker.ClassTyping, "bob"), payload))

	require.Eventually(t, func() bool {
		sent := st.Sent()
		return len(sent) == 2 && sent[1].Event == stream.EventTyping
	}, time.Second, 5*time.Millisecond)
}

func TestListener_DropsDeadSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := broker.NewMemory()
	defer b.Close()

	reg := registry.New()
	dead := stream.NewMemory()
	dead.FailWith(assert.AnError)
	reg.Register("bob", registry.KindNotification, dead)

	startListener(t, b, reg)

	payload, err := wire.Marshal(wire.Notification{ID: "n-1", Type: "system"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, broker.Channel(broker.ClassNotification, "bob"), payload))

	require.Eventually(t, func() bool {
		return !reg.HasLocal("bob")
	}, time.Second, 5*time.Millisecond, "failed send must evict the session")
	assert.True(t, dead.Closed())
}
