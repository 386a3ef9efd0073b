package tracing

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Header carries the trace ID in requests and responses.
const Header = "X-Trace-ID"

// HTTPMiddleware traces every request. An incoming X-Trace-ID is
// continued; the trace ID is echoed in the response.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithTraceID(c.Request.Context(), TraceID(c.GetHeader(Header)))

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.host", c.Request.Host)

		c.Request = c.Request.WithContext(ctx)
		c.Header(Header, string(span.TraceID))

		c.Next()

		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(errors.New(c.Errors.String()))
		}
		span.Finish()
		tracer.Submit(span)
	}
}
