package stream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/stream"
)

func TestSSEStream_HeadersAndFraming(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()

	st, err := stream.NewSSE(rec)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	ctx := context.Background()
	require.NoError(t, st.Send(ctx, stream.EventNotification, []byte(`{"id":"n-1"}`)))
	require.NoError(t, st.Send(ctx, stream.EventHeartbeat, []byte(`{"status":"alive"}`)))

	want := "event: notification\ndata: {\"id\":\"n-1\"}\n\n" +
		"event: heartbeat\ndata: {\"status\":\"alive\"}\n\n"
	assert.Equal(t, want, rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestSSEStream_SendAfterClose(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	st, err := stream.NewSSE(rec)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.Close(ctx))
	assert.ErrorIs(t, st.Send(ctx, stream.EventMessage, []byte(`{}`)), stream.ErrStreamClosed)
	require.NoError(t, st.Close(ctx), "close is idempotent")
}

type noFlushWriter struct {
	http.ResponseWriter
}

func TestSSEStream_RequiresFlusher(t *testing.T) {
	t.Parallel()

	_, err := stream.NewSSE(noFlushWriter{httptest.NewRecorder()})
	assert.ErrorIs(t, err, stream.ErrFlusherUnsupported)
}

func TestMemoryStream(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := stream.NewMemory()

	require.NoError(t, st.Send(ctx, stream.EventMessage, []byte(`{"id":"m-1"}`)))

	sent := st.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, stream.EventMessage, sent[0].Event)
	assert.JSONEq(t, `{"id":"m-1"}`, string(sent[0].Payload))

	st.FailWith(assert.AnError)
	assert.ErrorIs(t, st.Send(ctx, stream.EventMessage, nil), assert.AnError)

	require.NoError(t, st.Close(ctx))
	assert.True(t, st.Closed())
	assert.ErrorIs(t, st.Send(ctx, stream.EventMessage, nil), stream.ErrStreamClosed)
}
