// Package main is the entry point for the one-click Node.js installer.
//
// The launcher serves a single-button page on a loopback address. Opening
// it in a browser is the application window; pressing the button runs the
// bundled install script through the whitelisted bridge and shows the
// report.
//
// Architecture:
//
//	Browser page → preload shellAPI → /ipc websocket → dispatcher → runner → powershell
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for local use
//
// Usage:
//
//	# Serve the window on the default port
//	./launcher
//
//	# Run the renderer in-process, print the report and exit
//	./launcher -headless
//
//	# Development mode (colored logs, debug level)
//	./launcher -dev -port 9000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
