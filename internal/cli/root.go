package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/tackhq/tackd/internal"
	"github.com/tackhq/tackd/internal/paths"
	"github.com/tackhq/tackd/internal/settings"
)

// Represents the root command for tackd.
var RootCmd struct {
	Quiet      bool          `short:"q" help:"Suppress informational output."`
	Verbose    bool          `short:"v" help:"Enable verbose output."`
	Debug      bool          `short:"d" help:"Enable debug output."`
	Socket     string        `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Config     string        `short:"c" help:"Read configuration from this file instead of the default location." placeholder:"FILE" type:"path"`
	Start      StartCmd      `cmd:"" help:"Start the daemon."`
	Run        RunCmd        `cmd:"" help:"Run an entry point through the daemon."`
	Status     StatusCmd     `cmd:"" help:"Show daemon status."`
	Invalidate InvalidateCmd `cmd:"" help:"Drop the warm context of a build."`
	Stop       StopCmd       `cmd:"" help:"Stop the daemon."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`
}

// Exit status requested by a command, reported without an error message.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Runs the command line. SIGINT and SIGTERM cancel the command's context.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The tack daemon.\n\nKeeps build entry points warm and runs them in-process on behalf of short-lived clients."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Exit code for an error returned by [Execute], and whether it should be
// logged.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code, false
	}
	return 1, true
}

// Applies the verbosity flags to the default charm logger. Modes enabled
// at link time stay enabled.
func configureLogger() {
	logger, ok := slog.Default().Handler().(*log.Logger)
	if !ok {
		return // Not a charm logger, nothing to configure
	}

	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	internal.SetDebug(debug)
	internal.SetQuiet(quiet)
	internal.SetVerbose(verbose)

	if isatty(os.Stderr) {
		logger.SetFormatter(log.TextFormatter)
	} else {
		logger.SetFormatter(log.LogfmtFormatter)
	}
	logger.SetReportTimestamp(verbose)
	logger.SetReportCaller(verbose && debug)

	if debug {
		logger.SetLevel(log.DebugLevel)
	} else if quiet {
		logger.SetLevel(log.WarnLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	logger.SetOutput(os.Stderr)
}

// Loads settings and applies the global socket flag on top.
func loadSettings() (*settings.Settings, error) {
	s, file, err := settings.Load(RootCmd.Config)
	if err != nil {
		return nil, err
	}
	if file != "" {
		slog.Debug("configuration loaded", "file", file)
	}
	if RootCmd.Socket != "" {
		s.Socket = RootCmd.Socket
	}
	return s, nil
}

// Socket the client commands connect to.
func socketPath() string {
	if RootCmd.Socket != "" {
		return RootCmd.Socket
	}
	if s, _, err := settings.Load(RootCmd.Config); err == nil && s.Socket != "" {
		return s.Socket
	}
	return paths.Socket()
}

// Reports whether f is a character device, i.e. a terminal.
func isatty(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
