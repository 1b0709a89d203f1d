package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"

	"github.com/tackhq/tackd/internal/classpath"
	"github.com/tackhq/tackd/internal/invoke"
	"github.com/tackhq/tackd/internal/loader"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  Kind
		code  invoke.ExitCode
		class func(error) bool
	}{
		{"none", nil, KindNone, 0, nil},
		{"malformed", &MalformedRequestError{Reason: "x"}, KindMalformedRequest, 2, errdefs.IsInvalidArgument},
		{"resolution", &classpath.ResolutionError{Classpath: "/x", Reason: "y"}, KindClasspathResolution, 1, errdefs.IsNotFound},
		{"archive", fmt.Errorf("open: %w", classpath.ErrArchive), KindClasspathResolution, 1, nil},
		{"entry point not found", &loader.EntryPointNotFoundError{Class: "Main"}, KindEntryPointNotFound, 1, errdefs.IsNotFound},
		{"ambiguous", &loader.AmbiguousEntryPointError{Class: "Main", Count: 2}, KindAmbiguousEntryPoint, 1, errdefs.IsConflict},
		{"invocation", &invoke.InvocationFailure{Description: "boom"}, KindInvocationFailure, 1, errdefs.IsUnknown},
		{"initializer", fmt.Errorf("%w: Main: exit status 1", loader.ErrInitializer), KindInvocationFailure, 1, nil},
		{"cancelled", &CancelledError{State: StateInvoking, Err: context.Canceled}, KindCancelled, 130, errdefs.IsCanceled},
		{"timed out", &CancelledError{State: StateResolving, Err: context.DeadlineExceeded}, KindCancelled, 130, errdefs.IsCanceled},
		{"panic", &HostInternalError{Panic: "x"}, KindHostInternal, 1, errdefs.IsInternal},
		{"wrapped host error", &HostInternalError{Err: errors.New("disk")}, KindHostInternal, 1, errdefs.IsInternal},
		{"unclassified", errors.New("something else"), KindHostInternal, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := KindOf(tt.err)
			assert.Equal(t, tt.want, kind)
			assert.Equal(t, tt.code, kind.ExitCode())
			if tt.class != nil {
				assert.True(t, tt.class(tt.err), "errdefs class of %v", tt.err)
			}
		})
	}
}

func TestCancelledErrorKeepsCause(t *testing.T) {
	err := &CancelledError{State: StateInvoking, Err: context.DeadlineExceeded}

	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errdefs.IsCanceled(fmt.Errorf("session: %w", err)))
	assert.False(t, errdefs.IsCanceled(&HostInternalError{Panic: "x"}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "received", StateReceived.String())
	assert.Equal(t, "resolving", StateResolving.String())
	assert.Equal(t, "invoking", StateInvoking.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}
