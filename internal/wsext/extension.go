package wsext

import (
	"context"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/connection"
	"github.com/rickgao/hxsocket/internal/dom"
	"github.com/rickgao/hxsocket/internal/events"
	"github.com/rickgao/hxsocket/internal/hxattr"
	"github.com/rickgao/hxsocket/internal/loop"
	"github.com/rickgao/hxsocket/internal/message"
	"github.com/rickgao/hxsocket/internal/trigger"
)

// Config configures the extension.
type Config struct {
	Manager connection.ManagerConfig
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Manager: connection.DefaultManagerConfig()}
}

// Extension binds a document to its sockets.
type Extension struct {
	cfg    Config
	doc    *dom.Document
	bus    *events.Bus
	logger *slog.Logger

	manager  *connection.Manager
	outbound *message.Outbound
	inbound  *message.Inbound
	binder   *trigger.Binder

	ctx     context.Context
	started bool

	// Send elements waiting for an owning connection
	pending map[*html.Node]struct{}

	offRemove func()
	offInsert func()
}

// New creates an extension. A nil dialer dials real WebSockets.
func New(cfg Config, doc *dom.Document, bus *events.Bus, l *loop.Loop, dialer connection.Dialer, logger *slog.Logger) *Extension {
	if logger == nil {
		logger = slog.Default()
	}

	inbound := message.NewInbound(doc, bus, logger)
	return &Extension{
		cfg:      cfg,
		doc:      doc,
		bus:      bus,
		logger:   logger,
		manager:  connection.NewManager(cfg.Manager, dialer, l, bus, inbound, logger),
		outbound: message.NewOutbound(doc, bus, logger),
		inbound:  inbound,
		binder:   trigger.NewBinder(bus, logger),
		ctx:      context.Background(),
		pending:  make(map[*html.Node]struct{}),
	}
}

// Manager returns the connection manager.
func (x *Extension) Manager() *connection.Manager {
	return x.manager
}

// Start observes document mutations and processes the whole document.
// ctx bounds every dial.
func (x *Extension) Start(ctx context.Context) {
	if x.started {
		return
	}
	x.started = true
	x.ctx = ctx

	x.offRemove = x.doc.OnRemove(x.removed)
	x.offInsert = x.doc.OnInsert(x.Process)
	x.Process(x.doc.Root())

	x.logger.Info("extension started",
		"location", x.doc.Location(),
		"connections", x.manager.Count(),
		"pending_senders", len(x.pending),
	)
}

// Shutdown stops observing the document and closes every connection.
func (x *Extension) Shutdown() {
	if !x.started {
		return
	}
	x.started = false
	x.offRemove()
	x.offInsert()

	closed := x.manager.CloseAll()
	clear(x.pending)
	x.logger.Info("extension stopped", "closed", closed)
}

// Process establishes the connections and binds the send elements found
// in root's subtree, root included.
func (x *Extension) Process(root *html.Node) {
	var connects, sends []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if hxattr.IsConnectElement(n) {
			connects = append(connects, n)
		}
		if hxattr.IsSendElement(n) {
			sends = append(sends, n)
		}
		return true
	})

	established := false
	for _, n := range connects {
		if x.establish(n) {
			established = true
		}
	}
	for _, n := range sends {
		x.bindSend(n)
	}
	if established {
		x.rescan()
	}
}

func (x *Extension) establish(n *html.Node) bool {
	if len(x.manager.ByOwner(n)) > 0 {
		return false
	}

	urls, err := hxattr.ConnectURLs(n, x.doc.LocationURL())
	if err != nil {
		x.logger.Warn("cannot resolve socket url", "element", dom.Describe(n), "error", err)
		return false
	}
	return len(x.manager.Establish(x.ctx, n, urls)) > 0
}

// resolve finds the connections a send element routes through.
func (x *Extension) resolve(n *html.Node) []*connection.Connection {
	if id := hxattr.SendReference(n); id != "" {
		owner := x.doc.GetElementByID(id)
		if owner == nil {
			return nil
		}
		return x.manager.ByOwner(owner)
	}
	return x.manager.Nearest(n)
}

func (x *Extension) bindSend(n *html.Node) {
	if x.manager.IsBound(n) {
		return
	}

	conns := x.resolve(n)
	if len(conns) == 0 {
		x.pending[n] = struct{}{}
		x.logger.Debug("send element has no connection yet", "element", dom.Describe(n))
		return
	}
	delete(x.pending, n)

	for _, c := range conns {
		c := c
		off := x.binder.Bind(n, func(f trigger.Fired) {
			x.send(f, c)
		})
		x.manager.Bind(c, n, func() {
			off()
			// Still routed through another endpoint of the owner
			if x.manager.IsBound(n) {
				return
			}
			if x.started && x.doc.Contains(n) {
				x.pending[n] = struct{}{}
			}
		})
	}
}

func (x *Extension) send(f trigger.Fired, c *connection.Connection) {
	outcome, err := x.outbound.Send(f.Element, f.Submitter, c)
	if err != nil {
		x.logger.Error("send failed",
			"conn_id", c.ID,
			"element", dom.Describe(f.Element),
			"error", err,
		)
		return
	}
	x.logger.Debug("send",
		"conn_id", c.ID,
		"element", dom.Describe(f.Element),
		"trigger", f.Event.Name,
		"outcome", outcome,
	)
}

// rescan binds pending send elements that now have a connection.
func (x *Extension) rescan() {
	for n := range x.pending {
		if !x.doc.Contains(n) {
			delete(x.pending, n)
			continue
		}
		x.bindSend(n)
	}
}

// removed handles one element leaving the document.
func (x *Extension) removed(n *html.Node) {
	if closed := x.manager.Teardown(n); closed > 0 {
		x.logger.Debug("owner removed", "element", dom.Describe(n), "closed", closed)
	}
	x.manager.Unbind(n)
	delete(x.pending, n)
	x.bus.Forget(n)
}

// Pending returns the number of send elements waiting for a connection.
func (x *Extension) Pending() int {
	return len(x.pending)
}
