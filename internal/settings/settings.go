package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tackhq/tackd/internal/paths"
)

const (

	// Prefix of environment variables overriding file values.
	envPrefix = "TACKD"

	// Base name of the configuration file.
	fileName = "config.yaml"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Daemon configuration.
type Settings struct {
	Socket         string        `mapstructure:"socket"`          // Unix socket path. Empty uses the default.
	MainClass      string        `mapstructure:"main_class"`      // Class holding the entry point.
	AllowExec      bool          `mapstructure:"allow_exec"`      // Whether classes may run external programs.
	Env            []string      `mapstructure:"env"`             // Extra "key=value" entries for every context.
	MaxContexts    int           `mapstructure:"max_contexts"`    // Upper bound on live contexts.
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`    // Idle time after which a context is retired. Zero disables.
	EvictInterval  time.Duration `mapstructure:"evict_interval"`  // How often idle contexts are looked for.
	SessionTimeout time.Duration `mapstructure:"session_timeout"` // Per-session limit. Zero means none.
	MetricsAddress string        `mapstructure:"metrics_address"` // Listen address of the metrics endpoint. Empty disables it.
}

// Returns the built-in configuration.
func Defaults() Settings {
	return Settings{
		MainClass:     "Main",
		MaxContexts:   64,
		IdleTimeout:   30 * time.Minute,
		EvictInterval: time.Minute,
	}
}

// Loads the configuration.
//
// If file is empty the default file is read when present. An explicit file
// that does not exist is an error. Returns the settings and the path of the
// file that was read, or "" if none was.
func Load(file string) (*Settings, string, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("socket", d.Socket)
	v.SetDefault("main_class", d.MainClass)
	v.SetDefault("allow_exec", d.AllowExec)
	v.SetDefault("env", d.Env)
	v.SetDefault("max_contexts", d.MaxContexts)
	v.SetDefault("idle_timeout", d.IdleTimeout)
	v.SetDefault("evict_interval", d.EvictInterval)
	v.SetDefault("session_timeout", d.SessionTimeout)
	v.SetDefault("metrics_address", d.MetricsAddress)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := file
	if resolved == "" {
		candidate := filepath.Join(paths.Config(), fileName)
		if _, err := os.Stat(candidate); err == nil {
			resolved = candidate
		}
	}

	if resolved != "" {
		v.SetConfigFile(resolved)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("read config %s: %w", resolved, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, "", fmt.Errorf("parse config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, "", err
	}

	return &s, resolved, nil
}

// Reports the first out-of-range value.
func (s *Settings) Validate() error {
	switch {
	case s.MaxContexts < 0:
		return fmt.Errorf("%w: max_contexts must not be negative", ErrInvalidSettings)
	case s.IdleTimeout < 0:
		return fmt.Errorf("%w: idle_timeout must not be negative", ErrInvalidSettings)
	case s.IdleTimeout > 0 && s.EvictInterval <= 0:
		return fmt.Errorf("%w: evict_interval must be positive when idle_timeout is set", ErrInvalidSettings)
	case s.SessionTimeout < 0:
		return fmt.Errorf("%w: session_timeout must not be negative", ErrInvalidSettings)
	}
	for _, entry := range s.Env {
		if k, _, ok := strings.Cut(entry, "="); !ok || k == "" {
			return fmt.Errorf("%w: env entry %q is not key=value", ErrInvalidSettings, entry)
		}
	}
	return nil
}
