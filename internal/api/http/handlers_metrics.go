package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
)

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper. A nil collector disables
// tracking.
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// Track times one operation of a component; call the returned func when
// the handler finishes. Errors recorded on c with fail count as failures.
func (hm *HandlerMetrics) Track(c *gin.Context, component, operation string) func() {
	start := time.Now()
	return func() {
		if hm.metrics == nil {
			return
		}
		status := "success"
		if err := c.Errors.Last(); err != nil {
			status = "error"
			hm.metrics.RecordServiceError(component, operation, errorType(err.Err))
		}
		hm.metrics.RecordServiceCall(component, operation, status, time.Since(start))
	}
}

// errorType buckets an error by the status it maps to
func errorType(err error) string {
	switch code := statusFor(err); {
	case code == http.StatusServiceUnavailable:
		return "unavailable"
	case code >= http.StatusInternalServerError:
		return "internal"
	default:
		return "client"
	}
}
