package sandbox

import (
	"context"
	"time"
)

// Config defines sandbox configuration.
type Config struct {
	MaxCallStackSize int           // Maximum JS call depth
	Timeout          time.Duration // Upper bound for one Execute, including async work
	EnableConsole    bool          // Capture console.log/warn/error/info
}

// Result holds execution result.
type Result struct {
	Value    interface{}   // Settled value, unwrapped from a returned promise
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
}

// LogEntry represents console output.
type LogEntry struct {
	Level   string    // log, warn, error, info
	Message string    // Log message
	Time    time.Time // Timestamp
}

// AsyncFunc is host work exposed to scripts as a promise-returning
// function. It runs off the VM goroutine; its return value resolves the
// promise.
type AsyncFunc func(ctx context.Context) interface{}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxCallStackSize: 1024,
		Timeout:          30 * time.Minute,
		EnableConsole:    true,
	}
}
