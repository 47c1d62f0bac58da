package events

import (
	"time"

	"golang.org/x/net/html"
)

// Event is a single dispatch. Detail carries the event-specific payload,
// usually a pointer so listeners can modify it.
type Event struct {
	Name       string
	Target     *html.Node
	Detail     any
	Cancelable bool

	current          *html.Node
	defaultPrevented bool
	stopped          bool
}

// PreventDefault cancels a cancellable event. No-op otherwise.
func (e *Event) PreventDefault() {
	if e.Cancelable {
		e.defaultPrevented = true
	}
}

// DefaultPrevented reports whether a listener cancelled the event.
func (e *Event) DefaultPrevented() bool {
	return e.defaultPrevented
}

// StopPropagation keeps the event from reaching further ancestors and
// global listeners. Listeners on the current element still run.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// CurrentTarget is the element whose listener is running, nil for global
// listeners.
func (e *Event) CurrentTarget() *html.Node {
	return e.current
}

// Record is the snapshot of a finished dispatch published to watchers.
type Record struct {
	Name      string
	TargetID  string
	Target    string // Short element label for logs
	Cancelled bool
	At        time.Time
}
