package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cskr/pubsub"
	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/dom"
)

// Listener handles one event.
type Listener func(*Event)

// Subscription receives Records for watched event names.
type Subscription chan any

type entry struct {
	id int
	fn Listener
}

// Config configures a Bus.
type Config struct {
	WatchBuffer int // Per-watcher channel capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{WatchBuffer: 128}
}

// Bus dispatches events to element-scoped and global listeners.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID int
	scoped map[*html.Node]map[string][]entry
	global map[string][]entry

	// psMu is held shared around every pubsub call and exclusively by
	// Close, so no call reaches a shut down PubSub. mu is never held
	// across a pubsub call.
	psMu     sync.RWMutex
	ps       *pubsub.PubSub
	watchers int
	closed   bool
}

// New creates a bus. Close it to stop the watch stream.
func New(cfg Config, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WatchBuffer < 1 {
		cfg.WatchBuffer = DefaultConfig().WatchBuffer
	}

	return &Bus{
		logger: logger,
		scoped: make(map[*html.Node]map[string][]entry),
		global: make(map[string][]entry),
		ps:     pubsub.New(cfg.WatchBuffer),
	}
}

// On binds fn to events named name dispatched on target or its
// descendants. The returned func unbinds it.
func (b *Bus) On(target *html.Node, name string, fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	byName, ok := b.scoped[target]
	if !ok {
		byName = make(map[string][]entry)
		b.scoped[target] = byName
	}
	byName[name] = append(byName[name], entry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		byName, ok := b.scoped[target]
		if !ok {
			return
		}
		byName[name] = without(byName[name], id)
		if len(byName[name]) == 0 {
			delete(byName, name)
		}
		if len(byName) == 0 {
			delete(b.scoped, target)
		}
	}
}

// OnGlobal binds fn to every event named name, wherever it is dispatched.
func (b *Bus) OnGlobal(name string, fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.global[name] = append(b.global[name], entry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.global[name] = without(b.global[name], id)
		if len(b.global[name]) == 0 {
			delete(b.global, name)
		}
	}
}

// Forget drops every listener bound to n.
func (b *Bus) Forget(n *html.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.scoped, n)
}

// Listeners returns how many listeners are bound to target for name.
func (b *Bus) Listeners(target *html.Node, name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.scoped[target][name])
}

// Trigger dispatches a cancellable event and reports whether it was not
// cancelled.
func (b *Bus) Trigger(target *html.Node, name string, detail any) bool {
	return b.Dispatch(&Event{Name: name, Target: target, Detail: detail, Cancelable: true})
}

// Notify dispatches a non-cancellable event.
func (b *Bus) Notify(target *html.Node, name string, detail any) {
	b.Dispatch(&Event{Name: name, Target: target, Detail: detail})
}

// Dispatch runs listeners on the target, then each ancestor, then global
// listeners. Returns false if the event was cancelled.
func (b *Bus) Dispatch(ev *Event) bool {
	for n := ev.Target; n != nil && !ev.stopped; n = n.Parent {
		ev.current = n
		for _, e := range b.listeners(n, ev.Name) {
			e.fn(ev)
		}
	}

	if !ev.stopped {
		ev.current = nil
		for _, e := range b.globals(ev.Name) {
			e.fn(ev)
		}
	}

	b.publish(ev)
	return !ev.defaultPrevented
}

func (b *Bus) listeners(n *html.Node, name string) []entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]entry(nil), b.scoped[n][name]...)
}

func (b *Bus) globals(name string) []entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]entry(nil), b.global[name]...)
}

// Watch subscribes to Records for the given event names (all extension
// events if none are given). Watchers must keep draining the channel:
// a full channel eventually stalls dispatch.
func (b *Bus) Watch(names ...string) Subscription {
	if len(names) == 0 {
		names = All
	}

	b.psMu.RLock()
	defer b.psMu.RUnlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ch := make(Subscription)
		close(ch)
		return ch
	}
	b.watchers++
	b.mu.Unlock()

	b.logger.Debug("watch", "events", names)
	return b.ps.Sub(names...)
}

// Unwatch removes a subscription from the given names, or all of them.
func (b *Bus) Unwatch(sub Subscription, names ...string) {
	b.psMu.RLock()
	defer b.psMu.RUnlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if len(names) == 0 {
		b.watchers--
	}
	b.mu.Unlock()

	b.ps.Unsub(sub, names...)
}

// Close shuts down the watch stream and closes every subscription. It waits
// for in-flight deliveries, so watchers must still be draining.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.psMu.Lock()
	defer b.psMu.Unlock()
	b.ps.Shutdown()
}

func (b *Bus) publish(ev *Event) {
	b.psMu.RLock()
	defer b.psMu.RUnlock()

	b.mu.RLock()
	skip := b.closed || b.watchers == 0
	b.mu.RUnlock()
	if skip {
		return
	}

	b.ps.Pub(Record{
		Name:      ev.Name,
		TargetID:  dom.ID(ev.Target),
		Target:    dom.Describe(ev.Target),
		Cancelled: ev.defaultPrevented,
		At:        time.Now(),
	}, ev.Name)
}

func without(list []entry, id int) []entry {
	out := list[:0:0]
	for _, e := range list {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}
