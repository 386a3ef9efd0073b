package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Shell modes.
const (
	ModeWindow   = "window"
	ModeHeadless = "headless"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Shell     ShellConfig
	Runner    RunnerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds the loopback HTTP server configuration.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	Port string `envconfig:"PORT" default:"8765"`
}

// ShellConfig holds UI shell configuration.
type ShellConfig struct {
	// AppDir is the installation directory. Empty means the directory of
	// the running executable.
	AppDir     string        `envconfig:"APP_DIR"`
	Mode       string        `envconfig:"SHELL_MODE" default:"window"`
	CloseGrace time.Duration `envconfig:"SHELL_CLOSE_GRACE" default:"2s"`
	// Persist is "auto", "true" or "false". Auto keeps the process alive
	// without windows only on darwin.
	Persist string `envconfig:"SHELL_PERSIST" default:"auto"`
}

// RunnerConfig holds installer runner configuration.
type RunnerConfig struct {
	// Timeout bounds a single child process. Zero disables it.
	Timeout time.Duration `envconfig:"RUNNER_TIMEOUT" default:"0s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds bridge rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8765",
		},
		Shell: ShellConfig{
			Mode:       ModeWindow,
			CloseGrace: 2 * time.Second,
			Persist:    "auto",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks values envconfig cannot express as types.
func (c *Config) Validate() error {
	switch c.Shell.Mode {
	case ModeWindow, ModeHeadless:
	default:
		return fmt.Errorf("invalid SHELL_MODE %q: want %q or %q", c.Shell.Mode, ModeWindow, ModeHeadless)
	}
	switch strings.ToLower(c.Shell.Persist) {
	case "auto", "true", "false":
	default:
		return fmt.Errorf("invalid SHELL_PERSIST %q: want auto, true or false", c.Shell.Persist)
	}
	if c.Shell.CloseGrace < 0 {
		return fmt.Errorf("SHELL_CLOSE_GRACE must not be negative")
	}
	if c.Runner.Timeout < 0 {
		return fmt.Errorf("RUNNER_TIMEOUT must not be negative")
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// PersistWithoutWindows resolves SHELL_PERSIST for the given GOOS.
func (s ShellConfig) PersistWithoutWindows(goos string) bool {
	switch strings.ToLower(s.Persist) {
	case "true":
		return true
	case "false":
		return false
	default:
		return goos == "darwin"
	}
}

// ResolveAppDir returns the absolute installation directory.
func (s ShellConfig) ResolveAppDir() (string, error) {
	dir := s.AppDir
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate executable: %w", err)
		}
		dir = filepath.Dir(exe)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve app dir %q: %w", dir, err)
	}
	return abs, nil
}

// Platform is the GOOS the shell adapts its lifecycle to.
func Platform() string {
	return runtime.GOOS
}
