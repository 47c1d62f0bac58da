package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Socket is a live transport handle owned by one Connection.
type Socket interface {
	// Send writes one text frame.
	Send(data []byte) error

	// Close closes the transport. Idempotent.
	Close() error
}

// Callbacks receive transport events from transport goroutines. OnClose is
// called exactly once per socket.
type Callbacks struct {
	OnOpen    func()
	OnMessage func(data []byte, receivedAt time.Time)
	OnClose   func(err error)
}

// Dialer opens sockets. Dial must not block: it returns a handle right
// away and reports the outcome through cb.
type Dialer interface {
	Dial(ctx context.Context, url string, cb Callbacks) Socket
}

// WebSocketDialer dials gorilla/websocket clients.
type WebSocketDialer struct {
	cfg    ClientConfig
	logger *slog.Logger
}

// NewDialer creates a WebSocket dialer.
func NewDialer(cfg ClientConfig, logger *slog.Logger) *WebSocketDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketDialer{cfg: cfg, logger: logger}
}

// Dial starts connecting in the background.
func (d *WebSocketDialer) Dial(ctx context.Context, url string, cb Callbacks) Socket {
	c := newClient(d.cfg, url, cb, d.logger.With("url", url))
	go c.connect(ctx)
	return c
}

// client is a single WebSocket connection.
type client struct {
	cfg    ClientConfig
	url    string
	cb     Callbacks
	logger *slog.Logger

	conn *websocket.Conn
	done chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	closed     bool
	lastPingAt time.Time
	cancelDial context.CancelFunc

	closeOnce sync.Once
}

func newClient(cfg ClientConfig, url string, cb Callbacks, logger *slog.Logger) *client {
	if cb.OnOpen == nil {
		cb.OnOpen = func() {}
	}
	if cb.OnMessage == nil {
		cb.OnMessage = func([]byte, time.Time) {}
	}
	if cb.OnClose == nil {
		cb.OnClose = func(error) {}
	}

	return &client{
		cfg:    cfg,
		url:    url,
		cb:     cb,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// connect dials the server and starts the read and heartbeat loops.
func (c *client) connect(ctx context.Context) {
	dialCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.finish(ErrAlreadyClosed)
		return
	}
	c.cancelDial = cancel
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		Subprotocols:     c.cfg.Subprotocols,
	}

	conn, _, err := dialer.DialContext(dialCtx, c.url, c.cfg.Header)
	if err != nil {
		c.logger.Debug("websocket dial failed", "error", err)
		c.finish(err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		c.finish(ErrAlreadyClosed)
		return
	}
	c.conn = conn
	c.connected = true
	c.lastPingAt = time.Now()
	c.mu.Unlock()

	if c.cfg.ReadLimit > 0 {
		conn.SetReadLimit(c.cfg.ReadLimit)
	}

	// Server sends ping, we respond with pong
	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	// Server responds to our ping
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	c.logger.Debug("websocket connected")
	c.cb.OnOpen()

	go c.readLoop(conn)
	if c.cfg.PingInterval > 0 {
		go c.heartbeatLoop(conn)
	}
}

// Send writes a text frame.
func (c *client) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Close gracefully closes the connection, or aborts a dial in progress.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	cancel := c.cancelDial
	c.mu.Unlock()

	close(c.done)
	if cancel != nil {
		cancel()
	}

	var err error
	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = conn.Close()
	}

	c.finish(nil)
	return err
}

// finish releases the transport after a remote close or failure and
// reports the close exactly once.
func (c *client) finish(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		alreadyClosed := c.closed
		c.closed = true
		c.connected = false
		conn := c.conn
		c.mu.Unlock()

		if !alreadyClosed {
			close(c.done)
			if conn != nil {
				conn.Close()
			}
		}

		c.logger.Debug("websocket closed", "error", cause)
		c.cb.OnClose(cause)
	})
}

func (c *client) touch() {
	c.mu.Lock()
	c.lastPingAt = time.Now()
	c.mu.Unlock()
}

// readLoop reads frames until the connection fails or is closed.
func (c *client) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				c.finish(nil)
			default:
				c.finish(err)
			}
			return
		}

		if msgType != websocket.TextMessage {
			c.logger.Debug("ignoring non-text frame", "type", msgType, "bytes", len(data))
			continue
		}
		c.cb.OnMessage(data, receivedAt)
	}
}

// heartbeatLoop pings the server and monitors for stale connections.
func (c *client) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			timeout := c.cfg.WriteTimeout
			if timeout <= 0 {
				timeout = time.Second
			}
			deadline := time.Now().Add(timeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if c.cfg.PingTimeout > 0 && time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				c.finish(ErrStaleConnection)
				return
			}
		}
	}
}
