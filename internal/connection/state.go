package connection

import "fmt"

// State is a connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// canTransition reports whether s → to is a legal move. closed is terminal
// and reachable from every other state.
func (s State) canTransition(to State) bool {
	switch to {
	case StateConnecting:
		return s == StateIdle
	case StateOpen:
		return s == StateConnecting
	case StateClosed:
		return s != StateClosed
	}
	return false
}

// gate decides what happens to a message submitted in state s.
func (s State) gate() Delivery {
	switch s {
	case StateOpen:
		return Sent
	case StateConnecting:
		return Queued
	}
	return Dropped
}
