package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/tackhq/tackd/internal/client"
)

// Represents the 'tackd status' command.
type StatusCmd struct{}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	status, err := client.Status(ctx, socketPath())
	if err != nil {
		return err
	}

	fmt.Printf("version:  %s\n", status.Version)
	fmt.Printf("pid:      %d\n", status.Pid)
	fmt.Printf("uptime:   %s\n", status.Uptime)
	fmt.Printf("sessions: %d\n", status.Sessions)
	fmt.Printf("contexts: %d\n", status.Contexts)
	return nil
}

// Represents the 'tackd invalidate' command.
type InvalidateCmd struct {
	BuildDir string `arg:"" name:"build-dir" help:"Build directory whose context is dropped." type:"path"`
}

// Executes the invalidate command.
func (c *InvalidateCmd) Run(ctx context.Context) error {
	build, err := filepath.Abs(c.BuildDir)
	if err != nil {
		return err
	}

	ok, err := client.Invalidate(ctx, socketPath(), build)
	if err != nil {
		return err
	}

	if ok {
		slog.Info("context invalidated", "build", build)
	} else {
		slog.Info("no context for build", "build", build)
	}
	return nil
}

// Represents the 'tackd stop' command.
type StopCmd struct{}

// Executes the stop command.
func (c *StopCmd) Run(ctx context.Context) error {
	if err := client.Shutdown(ctx, socketPath()); err != nil {
		return err
	}
	slog.Info("shutdown requested")
	return nil
}
