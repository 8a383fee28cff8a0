package ssestream

import "fmt"

// StreamState is the lifecycle position of one stream instance.
type StreamState int

const (
	// StateIdle is the state before the engine starts pulling.
	StateIdle StreamState = iota
	// StateStreaming means items are being pulled and written.
	StateStreaming
	// StateCompletedClean means the sink was closed without any error event.
	// After a failure this is the silent-truncation outcome.
	StateCompletedClean
	// StateCompletedFaulted means an error event was written and the sink closed.
	StateCompletedFaulted
	// StateAborted means the engine stopped with the sink left open: the client
	// receives no further signal and waits indefinitely.
	StateAborted
	// StateCancelled means the client went away; the sink was closed and
	// pulling stopped without treating it as a failure.
	StateCancelled
)

var stateNames = map[StreamState]string{
	StateIdle:             "idle",
	StateStreaming:        "streaming",
	StateCompletedClean:   "completed-clean",
	StateCompletedFaulted: "completed-faulted",
	StateAborted:          "aborted",
	StateCancelled:        "cancelled",
}

func (s StreamState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s StreamState) Terminal() bool {
	switch s {
	case StateCompletedClean, StateCompletedFaulted, StateAborted, StateCancelled:
		return true
	}
	return false
}

var transitions = map[StreamState][]StreamState{
	StateIdle: {StateStreaming, StateCancelled},
	StateStreaming: {
		StateCompletedClean,
		StateCompletedFaulted,
		StateAborted,
		StateCancelled,
	},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s StreamState) CanTransition(next StreamState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
