// Package hxattr resolves the declarative attributes the socket extension
// reads from a document: ws-connect, ws-send, hx-ws, hx-target, hx-trigger
// and hx-vals.
package hxattr
