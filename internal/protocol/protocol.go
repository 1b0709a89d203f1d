package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Name of a protocol command.
type Command string

const (
	CmdInvoke     Command = "invoke"     // Run an entry point. Payload: [InvokeRequest].
	CmdInvalidate Command = "invalidate" // Drop a build's context. Payload: [InvalidateRequest].
	CmdStatus     Command = "status"     // Report daemon status. No payload.
	CmdShutdown   Command = "shutdown"   // Stop the daemon. No payload.
	CmdOK         Command = "ok"         // Successful response.
	CmdError      Command = "error"      // Failed response. Payload: [ErrorResult].
)

var ErrProtocol = errors.New("protocol error")

// Wire message.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Invocation request: the raw request fields and optional standard input.
type InvokeRequest struct {
	Fields []string `json:"fields"`
	Stdin  []byte   `json:"stdin,omitempty"`
}

// Outcome of an invocation.
type InvokeResult struct {
	Session  string `json:"session"`
	ExitCode int    `json:"exitCode"`
	Stdout   []byte `json:"stdout,omitempty"`
	Stderr   []byte `json:"stderr,omitempty"`
	Failure  string `json:"failure,omitempty"`
	Kind     string `json:"kind,omitempty"`
	State    string `json:"state"`
}

// Asks the daemon to drop the context of a build.
type InvalidateRequest struct {
	BuildID string `json:"buildId"`
}

// Whether a context was dropped.
type InvalidateResult struct {
	Invalidated bool `json:"invalidated"`
}

// Daemon status.
type StatusResult struct {
	Running  bool   `json:"running"`
	Version  string `json:"version"`
	Pid      int    `json:"pid"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Contexts int    `json:"contexts"`
}

// Failure response.
type ErrorResult struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Encodes a command and its payload into an envelope. A nil payload is
// omitted. The result carries no trailing newline.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s payload: %w", ErrProtocol, cmd, err)
		}
		env.Payload = raw
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrProtocol, cmd, err)
	}
	return data, nil
}

// Decodes an envelope, returning it along with its raw payload.
func Decode(data []byte) (*Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: decode envelope: %w", ErrProtocol, err)
	}
	if env.Command == "" {
		return nil, nil, fmt.Errorf("%w: envelope has no command", ErrProtocol)
	}
	return &env, env.Payload, nil
}

// Decodes a payload into T.
func DecodePayload[T any](raw json.RawMessage) (*T, error) {
	var v T
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrProtocol)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %w", ErrProtocol, err)
	}
	return &v, nil
}
