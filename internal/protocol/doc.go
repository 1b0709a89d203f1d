// Package protocol defines the messages exchanged between tackd and its
// clients.
//
// Every message is a JSON [Envelope] on a single line: a command name and
// a command-specific payload. A connection carries exactly one exchange.
// The client sends a request envelope and the daemon answers with either
// [CmdOK] and the command's result, or [CmdError] and an [ErrorResult].
//
//	data, err := protocol.Encode(protocol.CmdInvoke, &protocol.InvokeRequest{
//	    Fields: []string{"tackd", "/libs/app.jar", "/tmp/build1", "--version"},
//	})
package protocol
