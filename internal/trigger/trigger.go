package trigger

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/dom"
	"github.com/rickgao/hxsocket/internal/events"
	"github.com/rickgao/hxsocket/internal/hxattr"
)

// Spec is one parsed trigger.
type Spec struct {
	Event string
	Once  bool
}

// Parse reads an hx-trigger value.
func Parse(raw string) []Spec {
	var out []Spec
	for _, part := range strings.Split(raw, ",") {
		part = stripFilter(strings.TrimSpace(part))
		fields := strings.Fields(part)
		if len(fields) == 0 || fields[0] == "every" {
			continue
		}
		spec := Spec{Event: fields[0]}
		for _, mod := range fields[1:] {
			if mod == "once" {
				spec.Once = true
			}
		}
		out = append(out, spec)
	}
	return out
}

// stripFilter removes a trailing "[...]" event filter from the event name.
func stripFilter(s string) string {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return s
	}
	end := strings.IndexByte(s[start:], ']')
	if end < 0 {
		return s[:start]
	}
	return s[:start] + s[start+end+1:]
}

// Default returns the implicit trigger of n.
func Default(n *html.Node) Spec {
	switch dom.Tag(n) {
	case "form":
		return Spec{Event: events.Submit}
	case "select", "textarea":
		return Spec{Event: events.Change}
	case "input":
		if !dom.IsSubmitControl(n) {
			return Spec{Event: events.Change}
		}
	}
	return Spec{Event: events.Click}
}

// For returns the triggers declared on n, or its default.
func For(n *html.Node) []Spec {
	if specs := Parse(hxattr.TriggerSpec(n)); len(specs) > 0 {
		return specs
	}
	return []Spec{Default(n)}
}

// Fired describes one trigger activation.
type Fired struct {
	Element   *html.Node    // Element the trigger is bound to
	Event     *events.Event // Interaction event that fired it
	Submitter *html.Node    // Submit control for form submissions, if known
}

// Handler runs when a bound trigger fires.
type Handler func(Fired)

// Binder attaches trigger handlers through the event bus.
type Binder struct {
	bus    *events.Bus
	logger *slog.Logger
}

// NewBinder creates a binder.
func NewBinder(bus *events.Bus, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{bus: bus, logger: logger}
}

// Bind attaches handler to every trigger of n and returns a func that
// detaches them all.
func (b *Binder) Bind(n *html.Node, handler Handler) func() {
	specs := For(n)
	offs := make([]func(), 0, len(specs))

	for _, spec := range specs {
		spec := spec
		var off func()
		fired := false
		off = b.bus.On(n, spec.Event, func(ev *events.Event) {
			if spec.Once {
				if fired {
					return
				}
				fired = true
				off()
			}
			if cancelsDefault(ev, n) {
				ev.PreventDefault()
			}
			handler(Fired{Element: n, Event: ev, Submitter: submitter(ev)})
		})
		offs = append(offs, off)
	}

	b.logger.Debug("trigger bound", "element", dom.Describe(n), "triggers", specs)

	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// cancelsDefault reports whether the browser default for ev must be
// suppressed because the element handles it: form submissions and clicks
// on submit controls inside a form.
func cancelsDefault(ev *events.Event, n *html.Node) bool {
	switch ev.Name {
	case events.Submit:
		return true
	case events.Click:
		return dom.IsSubmitControl(n) && dom.Closest(n, dom.IsForm) != nil
	}
	return false
}

func submitter(ev *events.Event) *html.Node {
	if d, ok := ev.Detail.(*SubmitDetail); ok {
		return d.Submitter
	}
	return nil
}
