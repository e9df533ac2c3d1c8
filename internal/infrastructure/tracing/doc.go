/*
Package tracing provides lightweight request tracing logged through zap.

Every HTTP request, including editor and preview socket upgrades, gets a
span. Trace context arrives and leaves in the X-Trace-ID and X-Span-ID
headers, so the editor page can correlate its own logs with server spans.

# Usage

	tracer := tracing.New("codecanvas", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "export")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Spans are buffered (1000) and logged by a single collector goroutine.
Successful spans log at debug level; failed ones at error level.
*/
package tracing
