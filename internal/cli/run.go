package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tackhq/tackd/internal"
	"github.com/tackhq/tackd/internal/cache"
	"github.com/tackhq/tackd/internal/client"
	"github.com/tackhq/tackd/internal/loader"
	"github.com/tackhq/tackd/internal/session"
)

// Represents the 'tackd run' command.
type RunCmd struct {
	Classpath string   `arg:"" help:"Classpath in the platform path-list syntax."`
	BuildDir  string   `arg:"" name:"build-dir" help:"Build directory identifying the isolation domain." type:"path"`
	Args      []string `arg:"" optional:"" passthrough:"" help:"Arguments passed to the entry point. Use -- before arguments that look like flags."`
	Stdin     bool     `help:"Forward standard input to the entry point."`
	Local     bool     `help:"Run in this process instead of through the daemon."`
}

// Executes the run command.
//
// The entry point's output is written to this process's stdout and stderr
// and its exit code becomes this process's exit code, as if it had been
// run directly.
func (c *RunCmd) Run(ctx context.Context) error {
	fields := append([]string{internal.Name, c.Classpath, c.BuildDir}, c.Args...)

	var stdin []byte
	if c.Stdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		stdin = data
	}

	var (
		code           int
		stdout, stderr []byte
	)

	if c.Local {
		res, err := c.runLocal(ctx, fields, stdin)
		if err != nil {
			return err
		}
		code, stdout, stderr = int(res.ExitCode), res.Stdout, res.Stderr
	} else {
		res, err := client.Invoke(ctx, socketPath(), fields, stdin)
		if err != nil {
			return err
		}
		code, stdout, stderr = res.ExitCode, res.Stdout, res.Stderr
	}

	os.Stdout.Write(stdout)
	os.Stderr.Write(stderr)

	if code != 0 {
		return &ExitCodeError{Code: code}
	}
	return nil
}

// Runs one session against a private cache, the way the daemon would.
func (c *RunCmd) runLocal(ctx context.Context, fields []string, stdin []byte) (*session.Result, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	contexts := cache.New(&loader.ScriptLoader{
		MainClass: s.MainClass,
		Env:       s.Env,
		AllowExec: s.AllowExec,
	}, cache.Options{MaxContexts: 1})
	defer contexts.Close()

	d := &session.Dispatcher{Cache: contexts, Timeout: s.SessionTimeout}
	return d.Handle(ctx, fields, stdin), nil
}
