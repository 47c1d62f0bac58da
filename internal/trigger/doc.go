// Package trigger binds interaction events to send elements and emulates
// user interaction on a document.
//
// Default triggers follow the usual declarative rules: submit for forms,
// change for input/select/textarea, click for everything else. hx-trigger
// overrides them with a comma-separated list of event names, each
// optionally followed by "once". Filters and other modifiers are ignored.
package trigger
