// Package loop implements the single-threaded event loop every other
// component runs on.
//
// The loop:
//   - Runs posted tasks one at a time, in post order, on one goroutine
//   - Lets socket goroutines hand results back without sharing state
//   - Never blocks a task on network I/O
package loop
