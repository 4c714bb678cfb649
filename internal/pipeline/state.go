package pipeline

import "fmt"

// State is the position of one merge request in its lifecycle.
type State int

const (
	StateReceived State = iota
	StateOrderingResolved
	StateNormalizing
	StateConcatenating
	StateDelivering
	StateCleaned
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateOrderingResolved:
		return "ordering-resolved"
	case StateNormalizing:
		return "normalizing"
	case StateConcatenating:
		return "concatenating"
	case StateDelivering:
		return "delivering"
	case StateCleaned:
		return "cleaned"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCleaned
}

// CanTransition reports whether moving from s to next is allowed. Progress is
// strictly forward, any state before cleanup may fail, and both Delivering
// and Failed end in Cleaned.
func (s State) CanTransition(next State) bool {
	switch next {
	case StateFailed:
		return s != StateFailed && s != StateCleaned
	case StateCleaned:
		return s == StateDelivering || s == StateFailed
	default:
		return s < StateDelivering && next == s+1
	}
}
