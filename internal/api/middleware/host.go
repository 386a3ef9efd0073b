package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HostAllowlist holds the Host values a loopback listener answers to.
type HostAllowlist struct {
	names map[string]struct{}
	port  string
}

// LoopbackHosts returns the loopback names plus host, the configured
// listen host.
func LoopbackHosts(host string) []string {
	names := []string{"127.0.0.1", "localhost", "::1"}
	if host != "" {
		names = append(names, host)
	}
	return names
}

// NewHostAllowlist accepts names on port. An empty or "0" port accepts any
// port, for listeners bound to an ephemeral one.
func NewHostAllowlist(names []string, port string) *HostAllowlist {
	a := &HostAllowlist{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		a.names[normalizeHost(n)] = struct{}{}
	}
	if port != "0" {
		a.port = port
	}
	return a
}

// Allows reports whether hostport names this listener.
func (a *HostAllowlist) Allows(hostport string) bool {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, ""
	}
	if _, ok := a.names[normalizeHost(host)]; !ok {
		return false
	}
	return a.port == "" || port == a.port
}

func normalizeHost(h string) string {
	h = strings.TrimSuffix(strings.TrimPrefix(h, "["), "]")
	return strings.TrimSuffix(strings.ToLower(h), ".")
}

// HostGuard rejects requests whose Host header is not on the allowlist.
// A page on a foreign name resolved to loopback never reaches the routes.
func HostGuard(a *HostAllowlist) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Allows(c.Request.Host) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "host not allowed",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
