package connection

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/dom"
)

// queued is a message waiting for the connection to open.
type queued struct {
	data   string
	source *html.Node
}

// Connection is one socket bound to the element that declared it.
type Connection struct {
	ID        uuid.UUID
	URL       string
	Owner     *html.Node
	CreatedAt time.Time

	state   State
	socket  Socket
	queue   []queued
	wrapper *SocketWrapper
	logger  *slog.Logger

	// Send elements routed through this connection → unbind func
	listeners map[*html.Node]func()
}

func newConnection(url string, owner *html.Node, logger *slog.Logger) *Connection {
	id := uuid.New()
	c := &Connection{
		ID:        id,
		URL:       url,
		Owner:     owner,
		CreatedAt: time.Now(),
		state:     StateIdle,
		logger:    logger.With("conn_id", id, "url", url),
		listeners: make(map[*html.Node]func()),
	}
	c.wrapper = &SocketWrapper{conn: c}
	return c
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return c.state
}

// Socket returns the wrapper shared with every extension event of this
// connection.
func (c *Connection) Socket() *SocketWrapper {
	return c.wrapper
}

// Pending returns the number of queued messages.
func (c *Connection) Pending() int {
	return len(c.queue)
}

// Listeners returns the send elements bound to this connection.
func (c *Connection) Listeners() []*html.Node {
	out := make([]*html.Node, 0, len(c.listeners))
	for n := range c.listeners {
		out = append(out, n)
	}
	return out
}

// transition moves the state machine, rejecting illegal moves.
func (c *Connection) transition(to State) error {
	if !c.state.canTransition(to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, c.state, to)
	}
	c.logger.Debug("connection state", "from", c.state, "to", to)
	c.state = to
	return nil
}

// submit is the queue-or-send gate.
func (c *Connection) submit(data string, source *html.Node) Delivery {
	switch d := c.state.gate(); d {
	case Sent:
		return c.write(data, source)
	case Queued:
		c.queue = append(c.queue, queued{data: data, source: source})
		c.logger.Debug("message queued", "source", dom.Describe(source), "pending", len(c.queue))
		return Queued
	default:
		c.logger.Debug("message dropped", "source", dom.Describe(source), "state", c.state)
		return d
	}
}

// write sends directly on the socket regardless of state.
func (c *Connection) write(data string, source *html.Node) Delivery {
	if c.socket == nil {
		c.logger.Debug("no socket, message dropped", "source", dom.Describe(source))
		return Dropped
	}
	if err := c.socket.Send([]byte(data)); err != nil {
		c.logger.Warn("send failed", "source", dom.Describe(source), "error", err)
		return Failed
	}
	return Sent
}

// flush sends every queued message in FIFO order and clears the queue.
func (c *Connection) flush() int {
	pending := c.queue
	c.queue = nil
	sent := 0
	for _, q := range pending {
		if c.write(q.data, q.source) == Sent {
			sent++
		}
	}
	return sent
}

// release drops the socket, discards the queue and detaches listeners.
// Returns the number of discarded messages.
func (c *Connection) release() int {
	discarded := len(c.queue)
	c.queue = nil
	c.socket = nil
	for n, unbind := range c.listeners {
		if unbind != nil {
			unbind()
		}
		delete(c.listeners, n)
	}
	return discarded
}

// SocketWrapper is the connection façade handed to extension listeners.
type SocketWrapper struct {
	conn *Connection
}

// Send queues or sends data depending on connection state.
func (w *SocketWrapper) Send(data string, source *html.Node) Delivery {
	return w.conn.submit(data, source)
}

// SendImmediately writes data to the socket without queueing.
func (w *SocketWrapper) SendImmediately(data string, source *html.Node) error {
	c := w.conn
	if c.socket == nil {
		return ErrNotConnected
	}
	if err := c.socket.Send([]byte(data)); err != nil {
		return fmt.Errorf("send immediately: %w", err)
	}
	c.logger.Debug("message sent immediately", "source", dom.Describe(source))
	return nil
}

// Queue returns a copy of the messages waiting for open.
func (w *SocketWrapper) Queue() []string {
	out := make([]string, len(w.conn.queue))
	for i, q := range w.conn.queue {
		out[i] = q.data
	}
	return out
}

// State returns the connection state.
func (w *SocketWrapper) State() State {
	return w.conn.state
}

// URL returns the connection endpoint.
func (w *SocketWrapper) URL() string {
	return w.conn.URL
}

// Element returns the element that declared the connection.
func (w *SocketWrapper) Element() *html.Node {
	return w.conn.Owner
}

// Connection returns the wrapped connection.
func (w *SocketWrapper) Connection() *Connection {
	return w.conn
}
