package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Subdirectory name under each XDG base directory.
	daemonName = "tackd"

	// Default permission mode for directories created by the daemon,
	// including build directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files written by the daemon.
	DefaultFileMode os.FileMode = 0644
)

// Directory holding the socket and PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/tackd
//	macOS:   ~/Library/Caches/tackd/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default Unix socket the daemon listens on.
func Socket() string {
	return filepath.Join(Runtime(), "tackd.sock")
}

// Default PID file location.
func PIDFile() string {
	return filepath.Join(Runtime(), "tackd.pid")
}

// Directory searched for the daemon configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/tackd
//	macOS:   ~/Library/Application Support/tackd
func Config() string {
	return filepath.Join(xdg.ConfigHome, daemonName)
}
