package session

import (
	"errors"

	"github.com/tackhq/tackd/internal/classpath"
	"github.com/tackhq/tackd/internal/invoke"
	"github.com/tackhq/tackd/internal/loader"
)

// Failure class of a session, as reported to clients and metrics. Empty for
// successful sessions.
type Kind string

const (
	KindNone                Kind = ""
	KindMalformedRequest    Kind = "malformed_request"
	KindClasspathResolution Kind = "classpath_resolution"
	KindEntryPointNotFound  Kind = "entry_point_not_found"
	KindAmbiguousEntryPoint Kind = "ambiguous_entry_point"
	KindInvocationFailure   Kind = "invocation_failure"
	KindHostInternal        Kind = "host_internal"
	KindCancelled           Kind = "cancelled"
)

// Classifies err. Errors outside the session taxonomy are host internal.
func KindOf(err error) Kind {
	var (
		notFound  *loader.EntryPointNotFoundError
		ambiguous *loader.AmbiguousEntryPointError
	)

	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrMalformedRequest):
		return KindMalformedRequest
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrHostInternal):
		return KindHostInternal
	case errors.As(err, &notFound):
		return KindEntryPointNotFound
	case errors.As(err, &ambiguous):
		return KindAmbiguousEntryPoint
	case errors.Is(err, classpath.ErrResolution), errors.Is(err, classpath.ErrArchive):
		return KindClasspathResolution
	case errors.Is(err, invoke.ErrInvocation), errors.Is(err, loader.ErrInitializer):
		return KindInvocationFailure
	default:
		return KindHostInternal
	}
}

// Returns the exit code a session failing with kind reports.
func (k Kind) ExitCode() invoke.ExitCode {
	switch k {
	case KindNone:
		return 0
	case KindMalformedRequest:
		return invoke.UsageExitCode
	case KindCancelled:
		return invoke.CancelledExitCode
	default:
		return invoke.FailureExitCode
	}
}
