package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	}, "private registries must not collide")
}

func TestRecordPresent(t *testing.T) {
	m := NewMetrics()

	m.RecordPresent("embedded", "ok")
	m.RecordPresent("embedded", "ok")
	m.RecordPresent("detached", "skipped")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Presents.WithLabelValues("embedded", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Presents.WithLabelValues("detached", "skipped")))
	assert.Equal(t, int64(3), m.Snapshot().TotalPresents)
}

func TestDetachedGaugeNeverNegative(t *testing.T) {
	m := NewMetrics()

	m.IncDetachedOpened()
	m.DecDetachedActive()
	m.DecDetachedActive()

	assert.Equal(t, 0.0, testutil.ToFloat64(m.DetachedActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DetachedOpened))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/api/workspaces/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for _, id := range []string{"ws_a", "ws_b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/workspaces/"+id, nil))
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/workspaces/:id", "204"))
	assert.Equal(t, 2.0, got)
	assert.Equal(t, int64(2), m.Snapshot().TotalRequests)
}

func TestHandlerServesExposition(t *testing.T) {
	m := NewMetrics()
	m.RecordComposition(time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "codecanvas_compositions_total 1")
	assert.Contains(t, w.Body.String(), "codecanvas_uptime_seconds")
}

func TestTimerWithoutMetrics(t *testing.T) {
	timer := NewTimer(nil, "archive", "export")
	assert.GreaterOrEqual(t, timer.Stop("success"), time.Duration(0))
}
