package loader

import (
	"context"
	"io"

	"github.com/tackhq/tackd/internal/classpath"
)

// Identifies one build's isolation domain. In practice it is the path of the
// build's working directory.
type BuildID string

// Standard streams of one invocation.
type Stdio struct {
	Stdin  io.Reader // Nil means no input.
	Stdout io.Writer
	Stderr io.Writer
}

// A loaded, ready-to-run entry point.
//
// Run may be called concurrently. It returns the exit status the entry point
// asked for; a non-nil error means the entry point failed without producing
// one.
type EntryPoint interface {
	Run(ctx context.Context, stdio Stdio, args []string) (int, error)
	Close() error
}

// Produces an entry point scoped to exactly one classpath and build.
type Loader interface {
	Load(ctx context.Context, cp classpath.Spec, build BuildID) (EntryPoint, error)
}

// Adapts an ordinary function to [Loader].
type LoaderFunc func(ctx context.Context, cp classpath.Spec, build BuildID) (EntryPoint, error)

func (f LoaderFunc) Load(ctx context.Context, cp classpath.Spec, build BuildID) (EntryPoint, error) {
	return f(ctx, cp, build)
}

// Adapts a Go function to [EntryPoint]. Closing it is a no-op.
type Func func(ctx context.Context, stdio Stdio, args []string) (int, error)

func (f Func) Run(ctx context.Context, stdio Stdio, args []string) (int, error) {
	return f(ctx, stdio, args)
}

func (f Func) Close() error { return nil }
