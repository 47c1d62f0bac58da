package connection

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/dom"
	"github.com/rickgao/hxsocket/internal/events"
	"github.com/rickgao/hxsocket/internal/loop"
)

// MessageHandler receives inbound frames of open connections.
type MessageHandler interface {
	HandleMessage(conn *Connection, data string, receivedAt time.Time)
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(conn *Connection, data string, receivedAt time.Time)

// HandleMessage calls f.
func (f MessageHandlerFunc) HandleMessage(conn *Connection, data string, receivedAt time.Time) {
	f(conn, data, receivedAt)
}

// Manager supervises one socket per declared endpoint. Every method must be
// called on the event loop; transport callbacks are re-posted there.
type Manager struct {
	cfg     ManagerConfig
	dialer  Dialer
	loop    *loop.Loop
	bus     *events.Bus
	handler MessageHandler
	logger  *slog.Logger

	// Owning element → live connections, in establish order
	owners map[*html.Node][]*Connection

	established int64
	closed      int64
}

// NewManager creates a Connection Manager. A nil dialer dials real
// WebSockets with cfg.Client.
func NewManager(cfg ManagerConfig, dialer Dialer, l *loop.Loop, bus *events.Bus, handler MessageHandler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if dialer == nil {
		dialer = NewDialer(cfg.Client, logger)
	}
	if handler == nil {
		handler = MessageHandlerFunc(func(*Connection, string, time.Time) {})
	}

	return &Manager{
		cfg:     cfg,
		dialer:  dialer,
		loop:    l,
		bus:     bus,
		handler: handler,
		logger:  logger,
		owners:  make(map[*html.Node][]*Connection),
	}
}

// SetHandler replaces the inbound message handler.
func (m *Manager) SetHandler(h MessageHandler) {
	if h != nil {
		m.handler = h
	}
}

// Establish opens one connection per non-empty URL, owned by owner.
func (m *Manager) Establish(ctx context.Context, owner *html.Node, urls []string) []*Connection {
	var out []*Connection
	for _, u := range urls {
		if u == "" {
			continue
		}

		c := newConnection(u, owner, m.logger)
		if err := c.transition(StateConnecting); err != nil {
			m.logger.Error("cannot start connection", "error", err)
			continue
		}
		m.owners[owner] = append(m.owners[owner], c)
		m.established++

		c.socket = m.dialer.Dial(ctx, u, m.callbacks(c))

		m.logger.Info("connection establishing",
			"conn_id", c.ID,
			"url", u,
			"owner", dom.Describe(owner),
		)

		// Informational: the dial is already under way
		m.bus.Trigger(owner, events.WSConnecting, m.detail(c, nil, 0))

		if c.state == StateClosed {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *Manager) callbacks(c *Connection) Callbacks {
	return Callbacks{
		OnOpen: func() {
			m.post(c, func() { m.onOpen(c) })
		},
		OnMessage: func(data []byte, receivedAt time.Time) {
			text := string(data)
			m.post(c, func() { m.onMessage(c, text, receivedAt) })
		},
		OnClose: func(err error) {
			m.post(c, func() { m.onClose(c, err) })
		},
	}
}

func (m *Manager) post(c *Connection, task loop.Task) {
	if !m.loop.Post(task) {
		c.logger.Debug("event loop closed, dropping socket callback")
	}
}

func (m *Manager) onOpen(c *Connection) {
	if c.state != StateConnecting {
		return
	}
	if err := c.transition(StateOpen); err != nil {
		c.logger.Error("open rejected", "error", err)
		return
	}

	c.logger.Info("connection open", "queued", len(c.queue))
	m.bus.Notify(c.Owner, events.WSOpen, m.detail(c, nil, 0))

	// A wsOpen listener may have torn the connection down
	if c.state != StateOpen {
		return
	}
	if n := len(c.queue); n > 0 {
		sent := c.flush()
		c.logger.Debug("queue flushed", "queued", n, "sent", sent)
	}
}

func (m *Manager) onMessage(c *Connection, data string, receivedAt time.Time) {
	if c.state != StateOpen {
		c.logger.Debug("ignoring message on inactive connection", "state", c.state)
		return
	}
	m.handler.HandleMessage(c, data, receivedAt)
}

func (m *Manager) onClose(c *Connection, err error) {
	if c.state == StateClosed {
		return
	}
	m.finalize(c, err)
}

// finalize moves c to closed, releases its resources and emits close.
func (m *Manager) finalize(c *Connection, cause error) {
	wasOpen := c.state == StateOpen
	if err := c.transition(StateClosed); err != nil {
		return
	}

	discarded := c.release()
	m.forget(c)
	m.closed++

	if cause != nil {
		c.logger.Warn("connection closed", "error", cause, "was_open", wasOpen, "discarded", discarded)
	} else {
		c.logger.Info("connection closed", "was_open", wasOpen, "discarded", discarded)
	}

	m.bus.Notify(c.Owner, events.WSClose, m.detail(c, cause, discarded))
}

func (m *Manager) forget(c *Connection) {
	conns := m.owners[c.Owner]
	for i, other := range conns {
		if other == c {
			conns = append(conns[:i:i], conns[i+1:]...)
			break
		}
	}
	if len(conns) == 0 {
		delete(m.owners, c.Owner)
		return
	}
	m.owners[c.Owner] = conns
}

func (m *Manager) detail(c *Connection, cause error, discarded int) *LifecycleDetail {
	return &LifecycleDetail{
		ConnID:    c.ID,
		URL:       c.URL,
		Socket:    c.wrapper,
		Err:       cause,
		Discarded: discarded,
	}
}

// Teardown closes every connection owned by owner and returns how many
// were closed. Idempotent.
func (m *Manager) Teardown(owner *html.Node) int {
	conns := append([]*Connection(nil), m.owners[owner]...)
	for _, c := range conns {
		sock := c.socket
		m.finalize(c, nil)
		if sock != nil {
			if err := sock.Close(); err != nil {
				c.logger.Debug("socket close error", "error", err)
			}
		}
	}
	return len(conns)
}

// CloseAll tears down every live connection.
func (m *Manager) CloseAll() int {
	total := 0
	for _, owner := range m.Owners() {
		total += m.Teardown(owner)
	}
	return total
}

// Owners returns the elements that own live connections.
func (m *Manager) Owners() []*html.Node {
	out := make([]*html.Node, 0, len(m.owners))
	for n := range m.owners {
		out = append(out, n)
	}
	return out
}

// ByOwner returns the live connections declared by owner.
func (m *Manager) ByOwner(owner *html.Node) []*Connection {
	return append([]*Connection(nil), m.owners[owner]...)
}

// Nearest returns the live connections of the closest owning element at or
// above n, or nil when there is none.
func (m *Manager) Nearest(n *html.Node) []*Connection {
	owner := dom.Closest(n, func(e *html.Node) bool {
		return len(m.owners[e]) > 0
	})
	if owner == nil {
		return nil
	}
	return m.ByOwner(owner)
}

// Bind records el as a send source routed through c. unbind runs when the
// connection closes or el is unbound.
func (m *Manager) Bind(c *Connection, el *html.Node, unbind func()) bool {
	if c.state == StateClosed {
		return false
	}
	if prev, ok := c.listeners[el]; ok && prev != nil {
		prev()
	}
	c.listeners[el] = unbind
	return true
}

// Unbind detaches el from every connection it is bound to.
func (m *Manager) Unbind(el *html.Node) int {
	n := 0
	for _, conns := range m.owners {
		for _, c := range conns {
			unbind, ok := c.listeners[el]
			if !ok {
				continue
			}
			if unbind != nil {
				unbind()
			}
			delete(c.listeners, el)
			n++
		}
	}
	return n
}

// IsBound reports whether el is routed through a live connection. A
// connection being closed no longer counts.
func (m *Manager) IsBound(el *html.Node) bool {
	for _, conns := range m.owners {
		for _, c := range conns {
			if c.state == StateClosed {
				continue
			}
			if _, ok := c.listeners[el]; ok {
				return true
			}
		}
	}
	return false
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	total := 0
	for _, conns := range m.owners {
		total += len(conns)
	}
	return total
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	s := ManagerStats{
		Established: m.established,
		Closed:      m.closed,
	}
	for _, conns := range m.owners {
		for _, c := range conns {
			s.Live++
			switch c.state {
			case StateConnecting:
				s.Connecting++
				s.Queued += len(c.queue)
			case StateOpen:
				s.Open++
			}
		}
	}
	return s
}
