/*
Package monitoring provides Prometheus metrics for the launcher.

# Overview

Metrics live on a private registry owned by each Metrics value and are
exposed through Handler. They cover:

- HTTP requests (route template, status, latency)
- Action invocations (outcome, child process wall time, in flight)
- ipc messages and websocket connections
- Shell lifecycle state and live views of the window

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "install-node")
	// ... run the child process ...
	timer.Stop("success")
*/
package monitoring
