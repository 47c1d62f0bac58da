package trigger

import (
	"golang.org/x/net/html"

	"github.com/rickgao/hxsocket/internal/dom"
	"github.com/rickgao/hxsocket/internal/events"
)

// SubmitDetail is the detail of a submit event.
type SubmitDetail struct {
	Submitter *html.Node
}

// Click dispatches a click on n. When nothing cancels it and n is a submit
// control inside a form, the form is submitted with n as submitter.
// Returns false if the click was cancelled.
func Click(bus *events.Bus, n *html.Node) bool {
	if !bus.Trigger(n, events.Click, nil) {
		return false
	}
	if dom.IsSubmitControl(n) {
		if form := dom.Closest(n, dom.IsForm); form != nil {
			Submit(bus, form, n)
		}
	}
	return true
}

// Submit dispatches a submit event on form.
func Submit(bus *events.Bus, form, submitter *html.Node) bool {
	return bus.Trigger(form, events.Submit, &SubmitDetail{Submitter: submitter})
}

// Change sets the value of field n and dispatches a change event.
func Change(bus *events.Bus, n *html.Node, value string) {
	dom.SetValue(n, value)
	bus.Notify(n, events.Change, nil)
}
