package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/tackhq/tackd/internal"
	"github.com/tackhq/tackd/internal/loader"
	"github.com/tackhq/tackd/internal/protocol"
	"github.com/tackhq/tackd/internal/session"
)

// Handles an invoke command.
//
// The request fields go to the dispatcher as they are, so malformed requests
// are answered with an ok envelope carrying the usage failure, the same way
// a process would print its usage and exit.
func (s *Server) handleInvoke(ctx context.Context, conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.InvokeRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	res := s.dispatcher.Handle(ctx, req.Fields, req.Stdin)

	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()

	s.respond(conn, protocol.CmdOK, &protocol.InvokeResult{
		Session:  res.Session,
		ExitCode: int(res.ExitCode),
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Failure:  res.Failure,
		Kind:     string(res.Kind),
		State:    res.State.String(),
	})
}

// Handles an invalidate command.
func (s *Server) handleInvalidate(conn net.Conn, payload json.RawMessage) {
	req, err := protocol.DecodePayload[protocol.InvalidateRequest](payload)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}

	build, err := filepath.Abs(req.BuildID)
	if err != nil || req.BuildID == "" {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{
			Message: "invalid build directory: " + req.BuildID,
			Kind:    string(session.KindMalformedRequest),
		})
		return
	}

	ok := s.cache.Invalidate(loader.BuildID(build))
	slog.Info("invalidate requested", "build", build, "invalidated", ok)

	s.respond(conn, protocol.CmdOK, &protocol.InvalidateResult{Invalidated: ok})
}

// Handles a status command.
func (s *Server) handleStatus(conn net.Conn) {
	s.mu.Lock()
	sessions := s.sessions
	s.mu.Unlock()

	uptime := time.Since(s.startedAt).Truncate(time.Second)

	s.respond(conn, protocol.CmdOK, &protocol.StatusResult{
		Running:  true,
		Version:  internal.VersionString(),
		Pid:      os.Getpid(),
		Uptime:   uptime.String(),
		Sessions: sessions,
		Contexts: s.cache.Len(),
	})
}

// Handles a shutdown command.
func (s *Server) handleShutdown(conn net.Conn) {
	s.respond(conn, protocol.CmdOK, nil)
	slog.Info("shutdown requested")

	go func() {
		s.Stop()
	}()
}
