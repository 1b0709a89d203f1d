// Provides platform-appropriate locations for the tackd daemon.
//
// Runtime files (the socket and the PID file) live under the XDG runtime
// directory when one exists, falling back to the cache home. Configuration
// is read from the XDG config home. Every location uses "tackd" as its
// subdirectory so that several tools can share the same base directories.
package paths
