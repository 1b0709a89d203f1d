package invoke

import (
	"errors"
	"time"
)

// Outcome of one invocation.
type Result struct {
	ExitCode ExitCode      // Status the caller's process should exit with.
	Stdout   []byte        // Captured standard output.
	Stderr   []byte        // Captured standard error.
	Failure  string        // Description of an uncaught failure, if any.
	Err      error         // Why the invocation did not complete normally, if it did not.
	Duration time.Duration // Wall time spent in the entry point.
}

// Creates a result for a session that failed with err.
//
// When err is an [InvocationFailure] its description is carried over.
func NewErrorResult(code ExitCode, err error) *Result {
	r := &Result{ExitCode: code, Err: err}
	var failure *InvocationFailure
	switch {
	case errors.As(err, &failure):
		r.Failure = failure.Description
	case err != nil:
		r.Failure = err.Error()
	}
	return r
}
