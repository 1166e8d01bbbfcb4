package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	wstypes "minicrm-service/internal/domain/websocket"
	"minicrm-service/internal/events"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// serveHub upgrades every request and registers it as user 1 with the
// session id given in the "sid" query parameter.
func serveHub(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, 1, r.URL.Query().Get("sid"))
		if err := hub.Register(client); err != nil {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
}

func dial(t *testing.T, srv *httptest.Server, sid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?sid=" + sid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) *wstypes.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := wstypes.ParseMessage(data)
	require.NoError(t, err)
	return msg
}

func TestHubDeliversStaleNotices(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	srv := serveHub(t, hub)

	a := dial(t, srv, "a")
	assert.Equal(t, wstypes.EventTypeConnected, readMessage(t, a).Type)
	b := dial(t, srv, "b")
	assert.Equal(t, wstypes.EventTypeConnected, readMessage(t, b).Type)

	require.NoError(t, hub.Publish(context.Background(), events.Event{Type: events.CustomerStatusChanged, CustomerID: 9}))
	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, wstypes.EventTypeSnapshotStale, msg.Type)
		data, ok := msg.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "customer.status_changed", data["event"])
	}

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, wstypes.EventTypePong, readMessage(t, a).Type)

	hub.ForceLogout(1, "a", "logged out")
	assert.Equal(t, wstypes.EventTypeForceLogout, readMessage(t, a).Type)
	_, _, err := a.ReadMessage()
	assert.Error(t, err, "session a is closed after logout")

	require.NoError(t, hub.Publish(context.Background(), events.Event{Type: events.CustomerCreated}))
	assert.Equal(t, wstypes.EventTypeSnapshotStale, readMessage(t, b).Type)

	cancel()
	<-stopped
	_, _, err = b.ReadMessage()
	assert.Error(t, err, "shutdown closes remaining clients")

	a.Close()
	b.Close()
	srv.Close()

	assert.ErrorIs(t, hub.Publish(context.Background(), events.Event{}), ErrHubClosed)
	assert.ErrorIs(t, hub.Register(&Client{}), ErrHubClosed)
}

func TestHubRejectsGarbage(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	srv := serveHub(t, hub)

	conn := dial(t, srv, "x")
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, wstypes.EventTypeError, msg.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)))
	assert.Equal(t, wstypes.EventTypeError, readMessage(t, conn).Type)

	conn.Close()
	require.Eventually(t, func() bool { return hub.TotalClients() == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-stopped
	srv.Close()
}
