package models

// ConnectionState represents the lifecycle state of the logical realtime
// channel to the marketplace server.
type ConnectionState string

const (
	ConnectionIdle         ConnectionState = "idle"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionReconnecting ConnectionState = "reconnecting"
	ConnectionFallback     ConnectionState = "fallback"
	ConnectionError        ConnectionState = "error"
)

// Live reports whether the state carries an open channel.
func (s ConnectionState) Live() bool {
	return s == ConnectionConnected
}

// Degraded reports whether consumers should surface a degraded-mode
// indicator.
func (s ConnectionState) Degraded() bool {
	return s == ConnectionReconnecting || s == ConnectionFallback || s == ConnectionError
}
