package entities

// RuntimeState is the lifecycle state of the embedded runtime.
// Transitions are monotonic: Uninitialized -> Initialized -> Finalized.
type RuntimeState uint8

const (
	// StateUninitialized is the state before Initialize has succeeded.
	StateUninitialized RuntimeState = iota
	// StateInitialized means the runtime is booted and all entry points are resolved.
	StateInitialized
	// StateFinalized is terminal. No operation is valid afterward.
	StateFinalized
)

func (s RuntimeState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateFinalized:
		return "finalized"
	default:
		return "invalid"
	}
}

// CanTransitionTo reports whether moving from s to next respects the lifecycle.
func (s RuntimeState) CanTransitionTo(next RuntimeState) bool {
	switch s {
	case StateUninitialized:
		return next == StateInitialized || next == StateFinalized
	case StateInitialized:
		return next == StateFinalized
	default:
		return false
	}
}
