package cli

import (
	"context"
	"log/slog"

	"github.com/tackhq/tackd/internal/server"
)

// Represents the 'tackd start' command.
type StartCmd struct {
	MainClass   string `help:"Class holding the entry point. Overrides the configuration file." placeholder:"CLASS"`
	AllowExec   *bool  `help:"Allow classes to run external programs. Overrides the configuration file." negatable:""`
	MetricsAddr string `name:"metrics-address" help:"Serve Prometheus metrics on this TCP address. Overrides the configuration file." placeholder:"ADDR"`
}

// Executes the start command.
//
// Starts the daemon on a Unix domain socket and blocks until the context is
// cancelled (e.g. via SIGINT or SIGTERM) or a client asks it to shut down.
func (c *StartCmd) Run(ctx context.Context) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if c.MainClass != "" {
		s.MainClass = c.MainClass
	}
	if c.AllowExec != nil {
		s.AllowExec = *c.AllowExec
	}
	if c.MetricsAddr != "" {
		s.MetricsAddress = c.MetricsAddr
	}

	srv, err := server.New(server.Config{
		SocketPath:     s.Socket,
		MainClass:      s.MainClass,
		Env:            s.Env,
		AllowExec:      s.AllowExec,
		MaxContexts:    s.MaxContexts,
		IdleTimeout:    s.IdleTimeout,
		EvictInterval:  s.EvictInterval,
		SessionTimeout: s.SessionTimeout,
		MetricsAddress: s.MetricsAddress,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("tackd is running",
		"main_class", s.MainClass,
		"max_contexts", s.MaxContexts,
		"idle_timeout", s.IdleTimeout,
	)

	stopped := make(chan struct{})
	go func() {
		srv.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
	case <-stopped:
	}

	slog.Info("shutting down")
	return srv.Stop()
}
