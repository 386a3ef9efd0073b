// Package middleware provides the HTTP middleware in front of the shell.
//
// Middleware stack includes:
//   - HostGuard: only loopback Host names reach the routes
//   - CORS: only the shell's own origin is allowed
//   - RateLimit: per-IP token bucket limiting of bridge and ipc requests
//   - Isolation: CSP and framing headers keeping the page restricted
//
// Rate Limiting:
//   - Per-IP tracking; idle clients are swept after ten minutes
//   - Configurable RPS and burst capacity
//
// Example Usage:
//
//	router.Use(middleware.HostGuard(middleware.NewHostAllowlist(middleware.LoopbackHosts("127.0.0.1"), "8765")))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig("http://127.0.0.1:8765")))
//	router.Use(middleware.Isolation())
//	bridge := router.Group("/bridge", middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
