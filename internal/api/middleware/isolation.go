package middleware

import (
	"github.com/gin-gonic/gin"
)

// Isolation sets headers that keep the page a restricted context: scripts
// only from this origin, connections only back to this origin, no framing.
func Isolation() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		h := c.Writer.Header()
		h.Set("Content-Security-Policy",
			"default-src 'none'; script-src 'self'; style-src 'self' 'unsafe-inline'; "+
				"connect-src 'self' ws://"+host+" wss://"+host+"; "+
				"base-uri 'none'; form-action 'none'; frame-ancestors 'none'")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		c.Next()
	}
}
