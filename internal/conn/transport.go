package conn

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	apperrors "github.com/swapstay/swapsync/pkg/errors"
)

// Conn is a single realtime channel connection.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

// Dialer establishes realtime channel connections.
type Dialer interface {
	Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error)
}

// WebsocketDialer dials the marketplace event stream over websocket.
type WebsocketDialer struct {
	dialer *websocket.Dialer
}

// NewWebsocketDialer returns a dialer backed by the default websocket transport.
func NewWebsocketDialer() *WebsocketDialer {
	return &WebsocketDialer{dialer: websocket.DefaultDialer}
}

// Dial opens a websocket connection to the supplied endpoint.
func (d *WebsocketDialer) Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error) {
	if err := validateEndpoint(endpoint); err != nil {
		return nil, err
	}

	ws, resp, err := d.dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, apperrors.ErrTransportClosed.WithInternal(err)
	}
	return &websocketConn{ws: ws}, nil
}

type websocketConn struct {
	ws *websocket.Conn

	// the websocket protocol allows a single writer at a time; heartbeats and
	// latency probes share the connection, so writes are serialized here
	writeMu sync.Mutex
}

func (c *websocketConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *websocketConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *websocketConn) Close() error {
	return c.ws.Close()
}

func validateEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return apperrors.ErrTransportConfig
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return apperrors.ErrTransportConfig.WithInternal(err)
	}
	switch parsed.Scheme {
	case "ws", "wss":
		return nil
	default:
		return apperrors.ErrTransportConfig
	}
}
