package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/tackhq/tackd/internal/classpath"
	"github.com/tackhq/tackd/internal/paths"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

const (

	// Class loaded when the loader is not told otherwise.
	DefaultMainClass = "Main"

	// Name of the entry function every main class must declare once.
	entrySymbol = "main"

	// Prefix that routes a path to the context's classpath scope.
	classpathScheme = "classpath:"

	// Status reported for external commands when they are disabled, the
	// same status a shell reports for an unknown command.
	commandNotFound = 127
)

// Loads shell classes from a classpath into private interpreters.
type ScriptLoader struct {
	MainClass string   // Class holding the entry point. Empty uses [DefaultMainClass].
	Env       []string // Extra "key=value" entries layered over the host environment.
	AllowExec bool     // Whether classes may run external programs.
}

// Loads the main class for a build.
//
// The scope is opened, the class located and parsed, the build directory
// created if needed, and the class body run once as its static initializer.
// An initializer that ends with a non-zero status fails the load. The
// returned entry point owns the scope and must be closed.
func (l *ScriptLoader) Load(ctx context.Context, cp classpath.Spec, build BuildID) (EntryPoint, error) {
	scope, err := classpath.Open(cp)
	if err != nil {
		return nil, err
	}

	ep, err := l.load(ctx, scope, cp, build)
	if err != nil {
		scope.Close()
		return nil, err
	}

	return ep, nil
}

func (l *ScriptLoader) load(ctx context.Context, scope *classpath.Scope, cp classpath.Spec, build BuildID) (*scriptEntryPoint, error) {
	mainClass := l.MainClass
	if mainClass == "" {
		mainClass = DefaultMainClass
	}

	class, err := scope.Lookup(mainClass)
	if errors.Is(err, classpath.ErrClassNotFound) {
		return nil, &classpath.ResolutionError{
			Classpath: cp.String(),
			Reason:    fmt.Sprintf("main class %s not found", mainClass),
		}
	}
	if err != nil {
		return nil, err
	}

	file, err := syntax.NewParser().Parse(bytes.NewReader(class.Source), class.Location+"!/"+class.Path)
	if err != nil {
		return nil, &classpath.ResolutionError{
			Classpath: cp.String(),
			Reason:    fmt.Sprintf("main class %s is malformed: %v", mainClass, err),
		}
	}

	switch n := countEntrySymbols(file); {
	case n == 0:
		return nil, &EntryPointNotFoundError{Class: class.Name, Location: class.Location}
	case n > 1:
		return nil, &AmbiguousEntryPointError{Class: class.Name, Location: class.Location, Count: n}
	}

	dir := string(build)
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("prepare build directory %s: %w", dir, err)
	}

	ep := &scriptEntryPoint{
		scope:     scope,
		class:     class,
		allowExec: l.AllowExec,
	}

	env := mergeEnv(os.Environ(), l.Env, []string{
		BuildDirEnv + "=" + dir,
		ClasspathEnv + "=" + cp.String(),
	})

	var initOutput bytes.Buffer
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &initOutput, &initOutput),
		interp.OpenHandler(ep.open),
		interp.ExecHandlers(ep.execHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("create interpreter: %w", err)
	}

	if err := runner.Run(ctx, file); err != nil {
		return nil, fmt.Errorf("%w: %s: %w: %s", ErrInitializer, class.Name, err, strings.TrimSpace(initOutput.String()))
	}
	if _, ok := runner.Funcs[entrySymbol]; !ok {
		return nil, &EntryPointNotFoundError{Class: class.Name, Location: class.Location}
	}

	call, err := syntax.NewParser().Parse(strings.NewReader(entrySymbol+` "$@"`), class.Name)
	if err != nil {
		return nil, fmt.Errorf("parse entry call: %w", err)
	}

	ep.base = runner
	ep.call = call

	slog.Debug("class initialized",
		"class", class.Name,
		"location", class.Location,
		"build", dir,
		"output", initOutput.String(),
	)

	return ep, nil
}

// Counts top-level function declarations named after the entry symbol.
func countEntrySymbols(file *syntax.File) int {
	n := 0
	for _, stmt := range file.Stmts {
		decl, ok := stmt.Cmd.(*syntax.FuncDecl)
		if ok && decl.Name != nil && decl.Name.Value == entrySymbol {
			n++
		}
	}
	return n
}

// Entry point backed by an initialized interpreter.
type scriptEntryPoint struct {
	scope     *classpath.Scope // Classes visible to this entry point.
	class     *classpath.Class // Main class.
	allowExec bool             // Whether external programs may run.
	base      *interp.Runner   // Interpreter state after static initialization.
	call      *syntax.File     // Parsed `main "$@"`.
	mu        sync.Mutex       // Serializes subshell creation from base.
}

// Runs main "$@" in a fresh subshell.
//
// Variables and functions changed by the invocation live in the subshell
// and are discarded with it. An explicit exit, or main returning a status,
// becomes the returned exit code.
func (e *scriptEntryPoint) Run(ctx context.Context, stdio Stdio, args []string) (int, error) {
	e.mu.Lock()
	sub := e.base.Subshell()
	e.mu.Unlock()

	if err := interp.StdIO(stdio.Stdin, stdio.Stdout, stdio.Stderr)(sub); err != nil {
		return 0, err
	}
	if err := interp.Params(append([]string{"--"}, args...)...)(sub); err != nil {
		return 0, err
	}

	err := sub.Run(ctx, e.call)
	if err == nil {
		return 0, nil
	}

	var status interp.ExitStatus
	if errors.As(err, &status) {
		return int(status), nil
	}

	return 0, fmt.Errorf("%s.%s: %w", e.class.Name, entrySymbol, err)
}

// Releases the classpath scope.
func (e *scriptEntryPoint) Close() error {
	return e.scope.Close()
}

// Opens files for the interpreter.
//
// Paths with the "classpath:" prefix are read from the scope and are
// read-only. Everything else goes to the default handler, relative to the
// build directory.
func (e *scriptEntryPoint) open(ctx context.Context, name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	rest, ok := strings.CutPrefix(name, classpathScheme)
	if !ok {
		return interp.DefaultOpenHandler()(ctx, name, flag, perm)
	}

	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}

	f, err := e.scope.Open(path.Clean(strings.TrimPrefix(rest, "/")))
	if err != nil {
		return nil, err
	}
	return readOnly{f}, nil
}

// Gates external programs.
func (e *scriptEntryPoint) execHandler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if e.allowExec {
			return next(ctx, args)
		}
		hc := interp.HandlerCtx(ctx)
		fmt.Fprintf(hc.Stderr, "%s: external commands are disabled\n", args[0])
		return interp.ExitStatus(commandNotFound)
	}
}

// Adapts a read-only [fs.File] to the interpreter's file interface.
type readOnly struct {
	fs.File
}

func (readOnly) Write([]byte) (int, error) {
	return 0, fs.ErrPermission
}
