package core

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the lifecycle state of an engine run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateInitializing
	StateIterating
	StateCompleted
	StateConverged
	StateMaxIterReached
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateInitializing:
		return "initializing"
	case StateIterating:
		return "iterating"
	case StateCompleted:
		return "completed"
	case StateConverged:
		return "converged"
	case StateMaxIterReached:
		return "max_iter_reached"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateConverged, StateMaxIterReached, StateCancelled, StateFailed:
		return true
	}
	return false
}

// RunState is the coordinator-owned bookkeeping of a single run.
//
// It is created when a run starts and dropped when the run returns. Only the
// coordinator goroutine mutates Iteration and Workers; State and the
// cancellation flag may be read from other goroutines.
type RunState struct {
	ID        uuid.UUID
	Iteration int
	Workers   []int

	state     atomic.Int32
	cancelled atomic.Bool
}

// NewRunState creates a RunState in StateIdle with a fresh ID.
func NewRunState() *RunState {
	return &RunState{ID: uuid.New()}
}

// State returns the current lifecycle state.
func (r *RunState) State() State {
	return State(r.state.Load())
}

// Transition moves the run to s. Transitions out of a terminal state are ignored.
func (r *RunState) Transition(s State) {
	for {
		cur := r.state.Load()
		if State(cur).Terminal() {
			return
		}
		if r.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Cancel marks the run as cancelled. The coordinator observes the flag at its
// next suspension point.
func (r *RunState) Cancel() {
	r.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (r *RunState) Cancelled() bool {
	return r.cancelled.Load()
}
