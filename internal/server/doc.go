// Package server implements the demo socket endpoint.
//
// Every JSON frame a client sends is answered with an out-of-band HTML
// fragment appended to the element named by the frame's HX-Target header,
// which lets a page built on the extension be exercised end to end.
package server
