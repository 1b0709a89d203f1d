// Package client talks to a running tackd daemon.
//
// Each call opens a connection to the daemon socket, sends one request
// envelope and reads one response. Cancelling the context closes the
// connection, which the daemon treats as a cancelled session.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/containerd/errdefs"

	"github.com/tackhq/tackd/internal/protocol"
)

var (
	ErrNotRunning = errors.New("daemon is not running")
	ErrDaemon     = errors.New("daemon error")
)

// Failure reported by the daemon.
type DaemonError struct {
	Message string
	Kind    string
}

func (e *DaemonError) Error() string {
	return fmt.Sprintf("%v: %s", ErrDaemon, e.Message)
}

func (e *DaemonError) Unwrap() error { return ErrDaemon }

// Runs an invocation on the daemon. Fields follow the request layout:
// program, classpath, build directory, then the argument vector.
func Invoke(ctx context.Context, socket string, fields []string, stdin []byte) (*protocol.InvokeResult, error) {
	raw, err := roundTrip(ctx, socket, protocol.CmdInvoke, &protocol.InvokeRequest{Fields: fields, Stdin: stdin})
	if err != nil {
		return nil, err
	}
	return protocol.DecodePayload[protocol.InvokeResult](raw)
}

// Retrieves the daemon status.
func Status(ctx context.Context, socket string) (*protocol.StatusResult, error) {
	raw, err := roundTrip(ctx, socket, protocol.CmdStatus, nil)
	if err != nil {
		return nil, err
	}
	return protocol.DecodePayload[protocol.StatusResult](raw)
}

// Drops the context of a build. Reports whether there was one.
func Invalidate(ctx context.Context, socket, build string) (bool, error) {
	raw, err := roundTrip(ctx, socket, protocol.CmdInvalidate, &protocol.InvalidateRequest{BuildID: build})
	if err != nil {
		return false, err
	}
	res, err := protocol.DecodePayload[protocol.InvalidateResult](raw)
	if err != nil {
		return false, err
	}
	return res.Invalidated, nil
}

// Asks the daemon to stop.
func Shutdown(ctx context.Context, socket string) error {
	_, err := roundTrip(ctx, socket, protocol.CmdShutdown, nil)
	return err
}

// Sends one command and returns the payload of an ok response.
func roundTrip(ctx context.Context, socket string, cmd protocol.Command, payload any) (json.RawMessage, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", ErrNotRunning, errdefs.ErrUnavailable, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read %s response: %w", cmd, err)
	}

	env, raw, err := protocol.Decode(line)
	if err != nil {
		return nil, err
	}

	switch env.Command {
	case protocol.CmdOK:
		return raw, nil
	case protocol.CmdError:
		res, err := protocol.DecodePayload[protocol.ErrorResult](raw)
		if err != nil {
			return nil, err
		}
		return nil, &DaemonError{Message: res.Message, Kind: res.Kind}
	default:
		return nil, fmt.Errorf("%w: unexpected response %s", protocol.ErrProtocol, env.Command)
	}
}
