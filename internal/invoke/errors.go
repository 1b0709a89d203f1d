package invoke

import (
	"errors"
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
)

var ErrInvocation = errors.New("invocation failed")

// An entry point raised a failure instead of returning an exit code.
type InvocationFailure struct {
	Description string // Message, and stack trace for panics.
	Err         error  // Underlying error, nil for panics.
}

func (e *InvocationFailure) Error() string {
	msg, _, _ := strings.Cut(e.Description, "\n")
	return fmt.Sprintf("%v: %s", ErrInvocation, msg)
}

func (e *InvocationFailure) Unwrap() []error {
	errs := []error{ErrInvocation, errdefs.ErrUnknown}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
