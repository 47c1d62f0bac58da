// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Opens one WebSocket per endpoint declared on an element
//   - Drives each connection through idle → connecting → open → closed
//   - Queues sends made while connecting and flushes them on open
//   - Tears connections down when their element leaves the document
//   - Hands inbound text frames to the inbound message pipeline
//
// Manager and Connection state is owned by the event loop. The WebSocket
// client runs its own goroutines but only reports back through callbacks
// the manager re-posts onto the loop.
package connection
