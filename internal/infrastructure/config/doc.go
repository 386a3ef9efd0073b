// Package config provides 12-factor configuration management for the launcher.
//
// Configuration is loaded from environment variables with defaults that
// reproduce the baseline behaviour: loopback listener, no runner timeout,
// the window shell, and background persistence only where the platform
// expects it.
//
// Configuration Sections:
//   - Server: loopback HTTP listener (host, port)
//   - Shell: installation directory, window/headless mode, close grace, persistence
//   - Runner: per-invocation timeout
//   - Logging: log level and output format
//   - RateLimit: bridge rate limiting
//
// Environment Variables:
//   - HOST, PORT
//   - APP_DIR, SHELL_MODE, SHELL_CLOSE_GRACE, SHELL_PERSIST
//   - RUNNER_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
