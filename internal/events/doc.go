// Package events is the extension's event bus.
//
// Listeners bind to an element (and see events bubbling up from its
// descendants) or globally. Dispatch is synchronous: a listener that calls
// PreventDefault on a cancellable event makes Trigger return false, and the
// caller short-circuits. Observers that must not run on the event loop can
// Watch a stream of records instead.
package events
