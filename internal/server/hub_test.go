package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stoppedHub returns a hub whose Run loop has already exited, with its
// register and unregister queues full.
func stoppedHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Run(ctx)

	for len(h.register) < cap(h.register) {
		h.register <- &client{}
	}
	for len(h.unregister) < cap(h.unregister) {
		h.unregister <- &client{}
	}
	return h
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestHub_ServeAfterShutdownDoesNotBlock(t *testing.T) {
	h := stoppedHub(t)

	served := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serveWS(w, r, nil)
		close(served)
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("serveWS blocked registering with a stopped hub")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "connection is closed by the server")
	assert.Equal(t, 0, h.Clients())
}

func TestHub_ReadPumpExitsAfterShutdown(t *testing.T) {
	h := stoppedHub(t)

	conns := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	defer ts.Close()

	peer, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)

	var serverConn *websocket.Conn
	select {
	case serverConn = <-conns:
	case <-time.After(2 * time.Second):
		t.Fatal("no server connection")
	}

	c := &client{hub: h, conn: serverConn, send: make(chan []byte, 1)}
	done := make(chan struct{})
	go func() {
		c.readPump()
		close(done)
	}()

	require.NoError(t, peer.Close())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("readPump blocked unregistering from a stopped hub")
	}
	_ = serverConn.Close()
}
