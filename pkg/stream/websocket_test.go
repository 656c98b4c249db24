package stream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/stream"
)

// wsPair upgrades one server-side connection and dials it from a client,
// returning the wrapped server stream and the raw client connection.
func wsPair(t *testing.T) (*stream.WSStream, *websocket.Conn) {
	t.Helper()

	up := websocket.Upgrader{}
	serverConn := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverConn <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-serverConn:
		return stream.NewWS(conn, stream.WithWriteTimeout(time.Second)), client
	case <-time.After(time.Second):
		t.Fatal("server connection never arrived")
		return nil, nil
	}
}

func TestWSStream_SendReachesClient(t *testing.T) {
	t.Parallel()

	st, client := wsPair(t)

	require.NoError(t, st.Send(context.Background(), stream.EventMessage, []byte(`{"id":"m-1"}`)))

	client.SetReadDeadline(time.Now().Add(time.Second))
	kind, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.JSONEq(t, `{"id":"m-1"}`, string(data))
}

func TestWSStream_CloseSendsCloseFrame(t *testing.T) {
	t.Parallel()

	st, client := wsPair(t)
	ctx := context.Background()

	require.NoError(t, st.Close(ctx))

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	assert.ErrorIs(t, st.Send(ctx, stream.EventMessage, nil), stream.ErrStreamClosed)
	assert.NoError(t, st.Close(ctx), "repeat close tears the socket down again")
}
