package wsext

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/rickgao/hxsocket/internal/connection"
	"github.com/rickgao/hxsocket/internal/dom"
	"github.com/rickgao/hxsocket/internal/events"
	"github.com/rickgao/hxsocket/internal/loop"
	"github.com/rickgao/hxsocket/internal/trigger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSocket struct {
	url    string
	cb     connection.Callbacks
	sent   []string
	closed bool
}

func (s *fakeSocket) Send(data []byte) error {
	s.sent = append(s.sent, string(data))
	return nil
}

func (s *fakeSocket) Close() error {
	if !s.closed {
		s.closed = true
		s.cb.OnClose(nil)
	}
	return nil
}

type fakeDialer struct {
	sockets []*fakeSocket
}

func (d *fakeDialer) Dial(_ context.Context, url string, cb connection.Callbacks) connection.Socket {
	s := &fakeSocket{url: url, cb: cb}
	d.sockets = append(d.sockets, s)
	return s
}

// openAll opens every socket dialed so far.
func (d *fakeDialer) openAll(l *loop.Loop) {
	for _, s := range d.sockets {
		if !s.closed {
			s.cb.OnOpen()
		}
	}
	l.Drain()
}

type env struct {
	doc    *dom.Document
	loop   *loop.Loop
	bus    *events.Bus
	dialer *fakeDialer
	ext    *Extension
}

func newEnv(t *testing.T, page string) *env {
	t.Helper()
	doc, err := dom.ParseString(page, "https://example.test/app", discardLogger())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	e := &env{
		doc:    doc,
		loop:   loop.New(loop.DefaultConfig(), discardLogger()),
		bus:    events.New(events.DefaultConfig(), discardLogger()),
		dialer: &fakeDialer{},
	}
	e.ext = New(DefaultConfig(), doc, e.bus, e.loop, e.dialer, discardLogger())
	e.ext.Start(context.Background())
	e.loop.Drain()

	t.Cleanup(func() {
		e.ext.Shutdown()
		e.loop.Close()
		e.bus.Close()
	})
	return e
}

func (e *env) byID(t *testing.T, id string) *html.Node {
	t.Helper()
	n := e.doc.GetElementByID(id)
	if n == nil {
		t.Fatalf("no element #%s", id)
	}
	return n
}

func (e *env) lastSent(t *testing.T, s *fakeSocket) map[string]any {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatal("nothing sent")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s.sent[len(s.sent)-1]), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func fragment(t *testing.T, src string) *html.Node {
	t.Helper()
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil || len(nodes) == 0 {
		t.Fatalf("parse fragment: %v", err)
	}
	return nodes[0]
}

const appPage = `<html><body>
<div id="socket" ws-connect="/ws">
  <form id="chat" ws-send>
    <input name="text" value="hello">
    <button id="send" name="kind" value="msg">Send</button>
  </form>
</div>
<form id="foreign">
  <input name="topic" value="go">
  <button id="b1" ws-send="#socket" name="action" value="save">Save</button>
  <button id="b2" ws-send="#socket" name="action" value="delete">Delete</button>
</form>
</body></html>`

func TestExtension_EstablishResolvesURL(t *testing.T) {
	e := newEnv(t, appPage)

	if got := e.ext.Manager().Count(); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
	if got := e.dialer.sockets[0].url; got != "wss://example.test/ws" {
		t.Errorf("dialed %q, want wss://example.test/ws", got)
	}
	if e.ext.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", e.ext.Pending())
	}
}

func TestExtension_RemovalTearsDown(t *testing.T) {
	e := newEnv(t, appPage)
	before := e.ext.Manager().Count()

	closes := 0
	e.bus.OnGlobal(events.WSClose, func(*events.Event) { closes++ })

	if err := e.doc.Remove(e.byID(t, "socket")); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if got := e.ext.Manager().Count(); got != before-1 {
		t.Errorf("Count = %d, want %d", got, before-1)
	}
	if closes != 1 {
		t.Errorf("close fired %d times, want 1", closes)
	}
	if !e.dialer.sockets[0].closed {
		t.Error("socket not closed")
	}

	// The foreign buttons referenced the removed owner
	if e.ext.Pending() != 2 {
		t.Errorf("Pending = %d, want 2", e.ext.Pending())
	}
}

func TestExtension_RemovalClosesThroughRemovedAncestors(t *testing.T) {
	e := newEnv(t, `<html><body><div id="wrap"><div id="socket" ws-connect="/ws"></div></div></body></html>`)
	e.dialer.openAll(e.loop)

	var owner, wrap, global int
	e.bus.On(e.byID(t, "socket"), events.WSClose, func(*events.Event) { owner++ })
	e.bus.On(e.byID(t, "wrap"), events.WSClose, func(*events.Event) { wrap++ })
	e.bus.OnGlobal(events.WSClose, func(*events.Event) { global++ })

	wrapper := e.byID(t, "wrap")
	if err := e.doc.Remove(wrapper); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if owner != 1 || wrap != 1 || global != 1 {
		t.Errorf("close seen by owner=%d wrap=%d global=%d, want 1 each", owner, wrap, global)
	}
	if got := e.ext.Manager().Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
	if got := e.bus.Listeners(wrapper, events.WSClose); got != 0 {
		t.Errorf("removed ancestor kept %d listeners", got)
	}
}

func TestExtension_InsertProcesses(t *testing.T) {
	e := newEnv(t, appPage)

	n := fragment(t, `<section id="second" ws-connect="wss://other.test/feed"><span ws-send>x</span></section>`)
	if err := e.doc.AppendChild(e.doc.Body(), n); err != nil {
		t.Fatalf("AppendChild: %v", err)
	}

	if got := e.ext.Manager().Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	span := dom.Find(n, func(c *html.Node) bool { return dom.Tag(c) == "span" })
	if !e.ext.Manager().IsBound(span) {
		t.Error("inserted send element not bound")
	}
}

func TestExtension_SubmitWithSubmitter(t *testing.T) {
	e := newEnv(t, appPage)
	e.dialer.openAll(e.loop)

	trigger.Click(e.bus, e.byID(t, "send"))

	got := e.lastSent(t, e.dialer.sockets[0])
	if got["text"] != "hello" || got["kind"] != "msg" {
		t.Errorf("payload = %v", got)
	}
	headers := got["HEADERS"].(map[string]any)
	if headers["HX-Trigger"] != "chat" || headers["HX-Current-URL"] != "https://example.test/app" {
		t.Errorf("headers = %v", headers)
	}
}

func TestExtension_ForeignFormButtons(t *testing.T) {
	e := newEnv(t, appPage)
	e.dialer.openAll(e.loop)
	sock := e.dialer.sockets[0]

	submits := 0
	e.bus.On(e.byID(t, "foreign"), events.Submit, func(*events.Event) { submits++ })

	for _, tc := range []struct{ id, want string }{{"b1", "save"}, {"b2", "delete"}} {
		trigger.Click(e.bus, e.byID(t, tc.id))
		got := e.lastSent(t, sock)
		if got["action"] != tc.want {
			t.Errorf("click %s: action = %v, want %s", tc.id, got["action"], tc.want)
		}
		if got["topic"] != "go" {
			t.Errorf("click %s: topic = %v", tc.id, got["topic"])
		}
	}
	if len(sock.sent) != 2 {
		t.Errorf("sent %d messages, want 2", len(sock.sent))
	}
	if submits != 0 {
		t.Errorf("foreign form submitted %d times, want 0", submits)
	}
}

func TestExtension_QueueUntilOpen(t *testing.T) {
	e := newEnv(t, appPage)
	sock := e.dialer.sockets[0]

	trigger.Submit(e.bus, e.byID(t, "chat"), nil)
	trigger.Submit(e.bus, e.byID(t, "chat"), nil)
	if len(sock.sent) != 0 {
		t.Fatalf("sent before open: %v", sock.sent)
	}

	e.dialer.openAll(e.loop)
	if len(sock.sent) != 2 {
		t.Errorf("flushed %d, want 2", len(sock.sent))
	}
}

func TestExtension_ChangeTrigger(t *testing.T) {
	e := newEnv(t, `<body><div ws-connect="wss://x.test/">
<select id="room" name="room" ws-send><option>a</option><option>b</option></select>
</div></body>`)
	e.dialer.openAll(e.loop)

	trigger.Change(e.bus, e.byID(t, "room"), "b")

	if got := e.lastSent(t, e.dialer.sockets[0]); got["room"] != "b" {
		t.Errorf("room = %v, want b", got["room"])
	}
}

func TestExtension_TriggerOnce(t *testing.T) {
	e := newEnv(t, `<body><div ws-connect="wss://x.test/">
<div id="ping" ws-send hx-trigger="click once">ping</div>
</div></body>`)
	e.dialer.openAll(e.loop)

	trigger.Click(e.bus, e.byID(t, "ping"))
	trigger.Click(e.bus, e.byID(t, "ping"))

	if got := len(e.dialer.sockets[0].sent); got != 1 {
		t.Errorf("sent %d, want 1", got)
	}
}

func TestExtension_CloseUnbindsSenders(t *testing.T) {
	e := newEnv(t, appPage)
	e.dialer.openAll(e.loop)
	sock := e.dialer.sockets[0]

	sock.closed = true
	sock.cb.OnClose(nil)
	e.loop.Drain()

	trigger.Submit(e.bus, e.byID(t, "chat"), nil)
	if len(sock.sent) != 0 {
		t.Errorf("sent after close: %v", sock.sent)
	}
	if e.ext.Pending() != 3 {
		t.Errorf("Pending = %d, want 3", e.ext.Pending())
	}
}

func TestExtension_MultiEndpointKeepsSenderBound(t *testing.T) {
	e := newEnv(t, `<html><body><div id="socket" ws-connect="wss://a.test/one, wss://b.test/two">
<form id="chat" ws-send><input name="text" value="hi"></form>
</div></body></html>`)
	e.dialer.openAll(e.loop)
	if len(e.dialer.sockets) != 2 {
		t.Fatalf("dialed %d sockets, want 2", len(e.dialer.sockets))
	}
	first, second := e.dialer.sockets[0], e.dialer.sockets[1]
	chat := e.byID(t, "chat")

	first.closed = true
	first.cb.OnClose(nil)
	e.loop.Drain()

	if !e.ext.Manager().IsBound(chat) {
		t.Error("sender unbound while another endpoint is live")
	}
	if e.ext.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", e.ext.Pending())
	}

	trigger.Submit(e.bus, chat, nil)
	if len(first.sent) != 0 || len(second.sent) != 1 {
		t.Errorf("sent first=%d second=%d, want 0 and 1", len(first.sent), len(second.sent))
	}

	second.closed = true
	second.cb.OnClose(nil)
	e.loop.Drain()

	if e.ext.Manager().IsBound(chat) {
		t.Error("sender still bound after every endpoint closed")
	}
	if e.ext.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", e.ext.Pending())
	}
}

func TestExtension_LateOwnerBindsPending(t *testing.T) {
	e := newEnv(t, `<body><button id="late" ws-send="#owner">go</button><div id="slot"></div></body>`)

	if e.ext.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", e.ext.Pending())
	}

	owner := fragment(t, `<div id="owner" ws-connect="wss://x.test/"></div>`)
	if err := e.doc.AppendChild(e.byID(t, "slot"), owner); err != nil {
		t.Fatalf("AppendChild: %v", err)
	}
	e.dialer.openAll(e.loop)

	if e.ext.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", e.ext.Pending())
	}
	trigger.Click(e.bus, e.byID(t, "late"))
	if len(e.dialer.sockets[0].sent) != 1 {
		t.Errorf("sent %d, want 1", len(e.dialer.sockets[0].sent))
	}
}

func TestExtension_SwapReplacesOwner(t *testing.T) {
	e := newEnv(t, `<body><div id="socket" ws-connect="wss://x.test/one"></div></body>`)
	e.dialer.openAll(e.loop)
	first := e.dialer.sockets[0]

	first.cb.OnMessage([]byte(`<div id="socket" ws-connect="wss://x.test/two"></div>`), time.Now())
	e.loop.Drain()

	if !first.closed {
		t.Error("replaced owner's socket still open")
	}
	if got := e.ext.Manager().Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
	if len(e.dialer.sockets) != 2 || e.dialer.sockets[1].url != "wss://x.test/two" {
		t.Errorf("second dial missing: %d sockets", len(e.dialer.sockets))
	}
}

func TestExtension_Shutdown(t *testing.T) {
	e := newEnv(t, appPage)
	e.ext.Shutdown()

	if got := e.ext.Manager().Count(); got != 0 {
		t.Errorf("Count = %d after Shutdown, want 0", got)
	}

	// Observers are gone
	n := fragment(t, `<div ws-connect="wss://x.test/"></div>`)
	e.doc.AppendChild(e.doc.Body(), n)
	if got := e.ext.Manager().Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}

func TestExtension_BadURLIgnored(t *testing.T) {
	e := newEnv(t, `<body><div ws-connect="ftp://x.test/"></div></body>`)
	if got := e.ext.Manager().Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}
