package classpath

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrResolution    = errors.New("classpath resolution failed")
	ErrClassNotFound = errors.New("class not found")
	ErrInvalidClass  = errors.New("invalid class name")
	ErrArchive       = errors.New("unreadable classpath archive")
)

// Returned when a classpath yields no loadable code.
//
// Matches [ErrResolution] and [errdefs.ErrNotFound] with errors.Is.
type ResolutionError struct {
	Classpath string // Classpath as given by the caller.
	Reason    string // Why nothing could be resolved.
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("classpath resolution failed for %q: %s", e.Classpath, e.Reason)
}

func (e *ResolutionError) Unwrap() []error {
	return []error{ErrResolution, errdefs.ErrNotFound}
}
