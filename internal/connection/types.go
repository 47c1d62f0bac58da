package connection

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNotConnected      = errors.New("not connected")
	ErrStaleConnection   = errors.New("connection stale (no ping)")
	ErrAlreadyClosed     = errors.New("already closed")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Delivery is the outcome of handing a message to a connection.
type Delivery int

const (
	Sent    Delivery = iota // Written to the socket
	Queued                  // Held until the connection opens
	Dropped                 // Connection closed, message discarded
	Failed                  // Write attempted and failed
)

func (d Delivery) String() string {
	switch d {
	case Sent:
		return "sent"
	case Queued:
		return "queued"
	case Dropped:
		return "dropped"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// LifecycleDetail is the detail of connecting, open and close events.
type LifecycleDetail struct {
	ConnID    uuid.UUID
	URL       string
	Socket    *SocketWrapper
	Err       error // Close cause; nil for a local teardown or clean close
	Discarded int   // Queued messages dropped on close
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	HandshakeTimeout time.Duration // Dial handshake deadline
	WriteTimeout     time.Duration // Write deadline for sends
	PingInterval     time.Duration // Keepalive ping period (0 disables)
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	ReadLimit        int64         // Max inbound frame size in bytes (0 = unlimited)
	Header           http.Header   // Extra handshake headers
	Subprotocols     []string      // Requested subprotocols
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		ReadLimit:        1 << 20,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Client ClientConfig
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{Client: DefaultClientConfig()}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	Live        int   // Connections not yet closed
	Connecting  int   // Live connections waiting for open
	Open        int   // Live connections that are open
	Queued      int   // Messages waiting across all connecting connections
	Established int64 // Connections created since start
	Closed      int64 // Connections closed since start
}
