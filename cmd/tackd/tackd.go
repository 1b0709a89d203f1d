package main

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/tackhq/tackd/internal"
	"github.com/tackhq/tackd/internal/cli"
)

// Installs the logger and runs the command line. A command that forwards
// an entry point's exit code exits with it silently; other errors are
// logged and exit 1.
func main() {
	slog.SetDefault(logger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("tackd is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		code, report := cli.ExitCode(err)
		if report {
			slog.Error(err.Error())
		}
		os.Exit(code)
	}
}

// Charm logger behind slog, at the level the linker flags select. The CLI
// adjusts it once flags are parsed.
func logger() *slog.Logger {
	handler := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: internal.Name,
		Level:  logLevel(),
	})
	return slog.New(handler)
}

func logLevel() log.Level {
	if internal.IsDebug() {
		return log.DebugLevel
	}
	if internal.IsQuiet() {
		return log.WarnLevel
	}
	return log.InfoLevel
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
