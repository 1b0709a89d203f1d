package loader

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	ErrEntryPoint  = errors.New("entry point resolution failed")
	ErrInitializer = errors.New("class initialization failed")
)

// Returned when the main class exists but declares no entry symbol.
type EntryPointNotFoundError struct {
	Class    string // Dotted class name.
	Location string // Classpath location the class was loaded from.
}

func (e *EntryPointNotFoundError) Error() string {
	return fmt.Sprintf("class %s (%s) does not declare a main function", e.Class, e.Location)
}

func (e *EntryPointNotFoundError) Unwrap() []error {
	return []error{ErrEntryPoint, errdefs.ErrNotFound}
}

// Returned when the main class declares more than one candidate entry
// symbol. The loader never picks one of several candidates.
type AmbiguousEntryPointError struct {
	Class    string // Dotted class name.
	Location string // Classpath location the class was loaded from.
	Count    int    // Number of main declarations found.
}

func (e *AmbiguousEntryPointError) Error() string {
	return fmt.Sprintf("class %s (%s) declares main %d times", e.Class, e.Location, e.Count)
}

func (e *AmbiguousEntryPointError) Unwrap() []error {
	return []error{ErrEntryPoint, errdefs.ErrConflict}
}
