// Parses flags and configures logging for the tackd daemon and its client
// commands.
//
// The binary accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-s, --socket    Unix socket path.
//	-c, --config    Configuration file.
//
// Flags override build-time defaults set via linker flags and values read
// from the configuration file. After parsing, the global logger is
// reconfigured to reflect the final level and verbosity before the selected
// command runs.
package cli
