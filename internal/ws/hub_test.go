package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func testVerify(token string) (string, error) {
	if token == "good" {
		return "alice", nil
	}
	return "", errors.New("bad token")
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger, testVerify)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestRefusesUnauthenticatedSessions(t *testing.T) {
	_, srv := newTestHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=wrong"
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestBroadcastReachesAllSessionsInOrder(t *testing.T) {
	hub, srv := newTestHub(t)

	c1 := dial(t, srv, "good")
	defer c1.Close(websocket.StatusNormalClosure, "done")
	c2 := dial(t, srv, "good")
	defer c2.Close(websocket.StatusNormalClosure, "done")

	require.Eventually(t, func() bool { return hub.Sessions() == 2 },
		2*time.Second, 10*time.Millisecond)

	// Two sequential mutations on the same room: every session must observe
	// them in commit order.
	hub.Broadcast(RoomUpdate(7, "in_progress", "available"))
	hub.Broadcast(RoomUpdate(7, "finished", "in_progress"))

	for _, conn := range []*websocket.Conn{c1, c2} {
		first := readEvent(t, conn)
		assert.Equal(t, EventRoomUpdate, first.Type)
		assert.Equal(t, 7, first.Room)
		assert.Equal(t, "in_progress", first.Status)

		second := readEvent(t, conn)
		assert.Equal(t, "finished", second.Status)
		assert.Equal(t, "in_progress", second.PreviousStatus)
	}
}

func TestDNDEventCarriesFlag(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv, "good")
	defer conn.Close(websocket.StatusNormalClosure, "done")
	require.Eventually(t, func() bool { return hub.Sessions() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Broadcast(DNDUpdate(12, true))

	ev := readEvent(t, conn)
	assert.Equal(t, EventDNDUpdate, ev.Type)
	assert.Equal(t, 12, ev.Room)
	require.NotNil(t, ev.Active)
	assert.True(t, *ev.Active)
}

func TestSessionLeaveShrinksHub(t *testing.T) {
	hub, srv := newTestHub(t)

	conn := dial(t, srv, "good")
	require.Eventually(t, func() bool { return hub.Sessions() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	require.Eventually(t, func() bool { return hub.Sessions() == 0 },
		2*time.Second, 10*time.Millisecond)
}
