package session

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Usage line reported for malformed requests.
const Usage = "Usage: tackd [classpath] [build-dir] [args...]"

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrHostInternal     = errors.New("host internal error")
	ErrCancelled        = errors.New("session cancelled")
)

// Returned for requests that do not carry the required fields. Such a
// request is rejected before any resolution work.
type MalformedRequestError struct {
	Reason string
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMalformedRequest, e.Reason)
}

func (e *MalformedRequestError) Unwrap() []error {
	return []error{ErrMalformedRequest, errdefs.ErrInvalidArgument}
}

// A defect in the dispatcher, cache or loader rather than in the invoked
// code.
type HostInternalError struct {
	Err   error  // Underlying error, nil for panics.
	Panic any    // Recovered panic value, if any.
	Stack []byte // Stack trace of the panic.
}

func (e *HostInternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrHostInternal, e.Err)
	}
	return fmt.Sprintf("%v: panic: %v", ErrHostInternal, e.Panic)
}

func (e *HostInternalError) Unwrap() []error {
	errs := []error{ErrHostInternal, errdefs.ErrInternal}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Returned when a session stops waiting because its context was cancelled
// or timed out.
type CancelledError struct {
	State State // State the session was in.
	Err   error // Cause reported by the context.
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%v while %s: %v", ErrCancelled, e.State, e.Err)
}

func (e *CancelledError) Unwrap() []error {
	return []error{ErrCancelled, e.Err}
}

// Marks the error for [errdefs.IsCanceled], whatever the cause.
func (*CancelledError) Cancelled() {}
