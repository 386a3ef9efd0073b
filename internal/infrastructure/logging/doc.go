// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// Every component receives a *Logger and derives a named child from it, so
// log lines carry "runner", "ipc", "shell" and so on.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Window ready", zap.String("url", url))
//	logger.Error("Failed to serve", zap.Error(err))
package logging
