package invoke

import "strconv"

const (

	// Exit code reported when an entry point fails without choosing one.
	FailureExitCode ExitCode = 1

	// Exit code reported for requests that never reached an entry point
	// because they were malformed, following the shell convention for
	// usage errors.
	UsageExitCode ExitCode = 2

	// Exit code reported when a session was cancelled, as for a process
	// interrupted by SIGINT.
	CancelledExitCode ExitCode = 130
)

// Process exit status. The zero value means success.
type ExitCode int

// Returns true if the exit code indicates success.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// Returns the decimal representation.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// Truncates a requested status to the 0-255 range a process can report.
func normalize(code int) ExitCode {
	return ExitCode(code & 0xff)
}
