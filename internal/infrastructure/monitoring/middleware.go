package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		reqSize := c.Request.ContentLength
		if reqSize < 0 {
			reqSize = 0
		}

		c.Next()

		// Route template keeps workspace IDs out of the label set
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}

		metrics.RecordHTTPRequest(method, path, status, duration, reqSize, respSize)
	}
}

// Timer measures operation duration
type Timer struct {
	start   time.Time
	metrics *Metrics
	service string
	method  string
}

// NewTimer creates a new timer. A nil metrics collector yields a timer
// that only measures.
func NewTimer(metrics *Metrics, service, method string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		service: service,
		method:  method,
	}
}

// Stop stops the timer and records the duration
func (t *Timer) Stop(status string) time.Duration {
	duration := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.RecordServiceCall(t.service, t.method, status, duration)
	}
	return duration
}
