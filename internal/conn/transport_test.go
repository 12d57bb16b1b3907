package conn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/swapstay/swapsync/internal/models"
)

// streamServer answers every inbound frame with a pong control frame.
func streamServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
			if err := ws.WriteJSON(map[string]string{"event": "pong"}); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func streamURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestValidateEndpoint(t *testing.T) {
	require.NoError(t, validateEndpoint("ws://stream.test/events"))
	require.NoError(t, validateEndpoint("wss://stream.test/events"))
	require.Error(t, validateEndpoint(""))
	require.Error(t, validateEndpoint("http://stream.test/events"))
}

func TestWriteJSONSerializesConcurrentWriters(t *testing.T) {
	server := streamServer(t)
	dialer := NewWebsocketDialer()

	conn, err := dialer.Dial(context.Background(), streamURL(server), nil)
	require.NoError(t, err)
	defer conn.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if err := conn.WriteJSON(pingFrame()); err != nil {
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestHeartbeatAndProbesShareLiveChannel(t *testing.T) {
	server := streamServer(t)
	manager := NewManager(Options{
		StreamURL:         streamURL(server),
		HeartbeatInterval: 2 * time.Millisecond,
	})
	defer manager.Disconnect()

	require.NoError(t, manager.Connect(context.Background()))
	require.Eventually(t, func() bool {
		return manager.State() == models.ConnectionConnected
	}, time.Second, 5*time.Millisecond)

	// latency probes race the heartbeat writer on the same connection
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				manager.TestConnection(context.Background())
			}
		}()
	}
	wg.Wait()
}
