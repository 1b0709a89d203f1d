package session

// Lifecycle position of a session.
type State int

const (
	StateReceived  State = iota // Request accepted, not validated yet.
	StateResolving              // Waiting for the execution context.
	StateInvoking               // Entry point running.
	StateCompleted              // Entry point returned an exit code.
	StateFailed                 // Session ended without a normal return.
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateResolving:
		return "resolving"
	case StateInvoking:
		return "invoking"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
