package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/tackhq/tackd/internal/cache"
	"github.com/tackhq/tackd/internal/classpath"
	"github.com/tackhq/tackd/internal/invoke"
	"github.com/tackhq/tackd/internal/loader"
	"github.com/tackhq/tackd/internal/metrics"
)

// Source of acquired execution contexts.
type Resolver interface {
	Resolve(ctx context.Context, build loader.BuildID, cp classpath.Spec) (*cache.Context, error)
}

// Outcome of one session.
type Result struct {
	invoke.Result
	Session string // Session identifier.
	State   State  // Final state, [StateCompleted] or [StateFailed].
	Kind    Kind   // Failure class, empty when completed.
}

// Runs sessions against a context cache. Safe for concurrent use.
type Dispatcher struct {
	Cache   Resolver         // Context source.
	Invoker *invoke.Invoker  // Nil uses a zero Invoker.
	Timeout time.Duration    // Per-session limit. Zero means none.
	Metrics *metrics.Metrics // Optional.
}

// One session in flight.
type session struct {
	id    string
	state State
	start time.Time
	log   *slog.Logger
}

func newSession() *session {
	id := uuid.NewString()
	return &session{
		id:    id,
		state: StateReceived,
		start: time.Now(),
		log:   slog.With("session", id),
	}
}

func (s *session) transition(to State) {
	s.log.Debug("session state changed", "from", s.state, "to", to)
	s.state = to
}

// Validates raw request fields and dispatches the request.
//
// Malformed requests fail in [StateReceived] with [invoke.UsageExitCode]
// and the usage line on stderr; they never reach the cache.
func (d *Dispatcher) Handle(ctx context.Context, fields []string, stdin []byte) *Result {
	s := newSession()

	req, err := ParseRequest(fields)
	if err != nil {
		return d.finish(s, d.fail(s, err, nil))
	}
	req.Stdin = stdin

	return d.dispatch(ctx, s, req)
}

// Runs a parsed request.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Result {
	return d.dispatch(ctx, newSession(), req)
}

func (d *Dispatcher) dispatch(ctx context.Context, s *session, req *Request) (res *Result) {
	// Context acquired by this goroutine and not yet handed to the
	// invocation.
	var held *cache.Context

	defer func() {
		if r := recover(); r != nil {
			if held != nil {
				held.Release()
			}
			res = d.fail(s, &HostInternalError{Panic: r, Stack: debug.Stack()}, nil)
		}
		res = d.finish(s, res)
	}()

	s.log.Info("session received",
		"program", req.Program,
		"build", req.BuildID,
		"classpath", req.Classpath.String(),
		"args", len(req.Args),
	)

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	s.transition(StateResolving)
	x, err := d.Cache.Resolve(ctx, req.BuildID, req.Classpath)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			err = &CancelledError{State: StateResolving, Err: err}
		}
		return d.fail(s, err, nil)
	}
	held = x

	s.log.Debug("context resolved", "context", x.ID())
	s.transition(StateInvoking)

	var stdin io.Reader
	if req.Stdin != nil {
		stdin = bytes.NewReader(req.Stdin)
	}

	// The invocation holds the context until it actually returns, even if
	// this session stops waiting for it.
	done := make(chan *invoke.Result, 1)
	held = nil
	go func() {
		defer x.Release()
		done <- d.invoker().Run(ctx, x.EntryPoint(), req.Args, stdin)
	}()

	var inv *invoke.Result
	select {
	case <-ctx.Done():
		return d.fail(s, &CancelledError{State: StateInvoking, Err: context.Cause(ctx)}, nil)
	case inv = <-done:
	}

	if inv.Err != nil {
		return d.fail(s, inv.Err, inv)
	}

	s.transition(StateCompleted)
	return &Result{Result: *inv}
}

func (d *Dispatcher) invoker() *invoke.Invoker {
	if d.Invoker != nil {
		return d.Invoker
	}
	return &invoke.Invoker{}
}

// Builds the result of a failed session.
//
// Output captured before the failure is kept. The failure is appended to
// stderr the way a crashing process reports it.
func (d *Dispatcher) fail(s *session, err error, inv *invoke.Result) *Result {
	kind := KindOf(err)
	if kind == KindHostInternal && !errors.Is(err, ErrHostInternal) {
		err = &HostInternalError{Err: err}
	}

	res := &Result{Result: *invoke.NewErrorResult(kind.ExitCode(), err), Kind: kind}
	if inv != nil {
		res.Stdout = inv.Stdout
		res.Stderr = inv.Stderr
		res.Duration = inv.Duration
		res.ExitCode = inv.ExitCode
	}

	var stderr bytes.Buffer
	stderr.Write(res.Stderr)
	switch kind {
	case KindMalformedRequest:
		fmt.Fprintln(&stderr, Usage)
	case KindInvocationFailure:
		fmt.Fprintln(&stderr, res.Failure)
	default:
		fmt.Fprintf(&stderr, "tackd: %v\n", err)
	}
	res.Stderr = stderr.Bytes()

	attrs := []any{"state", s.state, "kind", kind, "error", err}
	if kind == KindHostInternal {
		var internal *HostInternalError
		if errors.As(err, &internal) && internal.Stack != nil {
			attrs = append(attrs, "stack", string(internal.Stack))
		}
		s.log.Error("session failed", attrs...)
	} else {
		s.log.Warn("session failed", attrs...)
	}

	s.transition(StateFailed)
	return res
}

// Stamps the session onto the result and records it.
func (d *Dispatcher) finish(s *session, res *Result) *Result {
	res.Session = s.id
	res.State = s.state

	elapsed := time.Since(s.start)
	d.Metrics.ObserveSession(res.State.String(), string(res.Kind), elapsed)

	if res.State == StateCompleted {
		s.log.Info("session completed", "exit", res.ExitCode, "duration", elapsed)
	}
	return res
}
