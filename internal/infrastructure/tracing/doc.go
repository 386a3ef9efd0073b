/*
Package tracing provides lightweight request tracing through zap.

Every HTTP request gets a span; an incoming X-Trace-ID header is continued
and the trace ID is echoed back. The ipc transport starts a child span per
invocation, so a button press can be followed from the websocket frame to
the installer process in the logs.

# Usage

	tracer := tracing.New("launcher", logger.Logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "ipc install-node")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Spans are buffered and logged by a single collector goroutine. A full
buffer drops spans rather than blocking the caller.
*/
package tracing
