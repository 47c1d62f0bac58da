// Package dom provides the document the extension operates on.
//
// A Document wraps a golang.org/x/net/html tree and adds what the socket
// extension needs from a host page:
//   - Lookup by id, closest-ancestor and simple selector matching
//   - Removal and insertion observers for connection teardown and processing
//   - Form value collection for outbound messages
//   - Out-of-band swaps for inbound fragments
//
// Documents are not safe for concurrent use; all access happens on the
// event loop.
package dom
