package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/hookstream/internal/api/ws"
	"github.com/gosuda/hookstream/internal/broadcast"
	"github.com/gosuda/hookstream/internal/buffer"
	"github.com/gosuda/hookstream/internal/domain"
)

type rawMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) rawMessage {
	t.Helper()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg rawMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func waitSubscribers(t *testing.T, b *broadcast.Broadcaster, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return b.Len() == n }, time.Second, 5*time.Millisecond)
}

func TestHub_ServeStream(t *testing.T) {
	t.Parallel()

	t.Run("initial snapshot then live events", func(t *testing.T) {
		t.Parallel()

		ring := buffer.NewRing(10)
		ring.Append(domain.Event{ID: 1, SessionID: "s1"}, domain.Event{ID: 2, SessionID: "s1"})
		b := broadcast.New(8)
		hub := ws.NewHub(ring, b, nil)

		srv := httptest.NewServer(http.HandlerFunc(hub.ServeStream))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn := dial(t, ctx, srv)

		initial := read(t, ctx, conn)
		assert.Equal(t, ws.MessageTypeInitial, initial.Type)
		var snapshot []domain.Event
		require.NoError(t, json.Unmarshal(initial.Data, &snapshot))
		require.Len(t, snapshot, 2)
		assert.Equal(t, int64(2), snapshot[0].ID)

		waitSubscribers(t, b, 1)
		b.Publish([]domain.Event{{ID: 3, HookEventType: "PreToolUse"}, {ID: 4, HookEventType: "Completed"}})

		for _, wantID := range []int64{3, 4} {
			msg := read(t, ctx, conn)
			assert.Equal(t, ws.MessageTypeEvent, msg.Type)
			var ev domain.Event
			require.NoError(t, json.Unmarshal(msg.Data, &ev))
			assert.Equal(t, wantID, ev.ID)
		}
	})

	t.Run("client disconnect releases subscription", func(t *testing.T) {
		t.Parallel()

		b := broadcast.New(8)
		hub := ws.NewHub(buffer.NewRing(1), b, nil)
		srv := httptest.NewServer(http.HandlerFunc(hub.ServeStream))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn := dial(t, ctx, srv)
		read(t, ctx, conn)
		waitSubscribers(t, b, 1)

		require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
		waitSubscribers(t, b, 0)
	})

	t.Run("broadcaster close ends stream", func(t *testing.T) {
		t.Parallel()

		b := broadcast.New(8)
		hub := ws.NewHub(buffer.NewRing(1), b, nil)
		srv := httptest.NewServer(http.HandlerFunc(hub.ServeStream))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn := dial(t, ctx, srv)
		read(t, ctx, conn)
		waitSubscribers(t, b, 1)

		b.Close()
		_, _, err := conn.Read(ctx)
		require.Error(t, err)
		assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	})
}
