package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware creates Gin middleware that wraps each request in a span.
// Socket upgrades produce one span covering the whole connection.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithTrace(c.Request.Context(),
			TraceID(c.GetHeader(TraceHeader)),
			SpanID(c.GetHeader(SpanHeader)),
		)

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)
		ws := c.Param("workspace")
		if ws == "" {
			ws = c.Param("id")
		}
		if ws != "" {
			span.SetTag("workspace", ws)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceHeader, string(span.TraceID))
		c.Header(SpanHeader, string(span.SpanID))

		c.Next()

		span.SetStatus(c.Writer.Status())
		span.SetTag("http.status", strconv.Itoa(c.Writer.Status()))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}

		span.Finish()
		tracer.Submit(span)
	}
}
