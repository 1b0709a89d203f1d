package invoke

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/tackhq/tackd/internal/loader"
)

// Runs entry points and captures their outcome. The zero value is ready to
// use and an Invoker may be shared by concurrent invocations.
type Invoker struct{}

// Runs ep with args and returns its result.
//
// The entry point gets fresh stdout and stderr buffers and, if stdin is not
// nil, reads from it. Args are handed over as the complete argument vector.
// Run never panics and never returns nil: failures are recorded on the
// result with [FailureExitCode].
func (inv *Invoker) Run(ctx context.Context, ep loader.EntryPoint, args []string, stdin io.Reader) *Result {
	var stdout, stderr syncBuffer

	start := time.Now()
	code, err := call(ctx, ep, loader.Stdio{Stdin: stdin, Stdout: &stdout, Stderr: &stderr}, args)

	res := &Result{
		ExitCode: code,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Err:      err,
		Duration: time.Since(start),
	}
	if f, ok := err.(*InvocationFailure); ok {
		res.Failure = f.Description
	}

	slog.Debug("invocation finished",
		"exit", res.ExitCode,
		"duration", res.Duration,
		"failed", err != nil,
	)

	return res
}

// Calls the entry point, converting exit requests, panics and errors into
// an exit code and an [InvocationFailure].
func call(ctx context.Context, ep loader.EntryPoint, stdio loader.Stdio, args []string) (code ExitCode, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if req, ok := r.(exitRequest); ok {
			code, err = normalize(req.code), nil
			return
		}
		code = FailureExitCode
		err = &InvocationFailure{
			Description: fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack()),
		}
	}()

	status, runErr := ep.Run(ctx, stdio, args)
	if runErr != nil {
		return FailureExitCode, &InvocationFailure{Description: runErr.Error(), Err: runErr}
	}
	return normalize(status), nil
}
