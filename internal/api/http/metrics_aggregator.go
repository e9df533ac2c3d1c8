package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codecanvas/internal/domain/preview/sandbox"
	"github.com/GriffinCanCode/codecanvas/internal/domain/workspace"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
)

// MetricsAggregator summarizes server state as JSON next to the
// Prometheus endpoint
type MetricsAggregator struct {
	metrics *monitoring.Metrics
	manager *workspace.Manager
	pool    *sandbox.Pool
}

// NewMetricsAggregator creates a metrics aggregator
func NewMetricsAggregator(metrics *monitoring.Metrics, manager *workspace.Manager, pool *sandbox.Pool) *MetricsAggregator {
	return &MetricsAggregator{metrics: metrics, manager: manager, pool: pool}
}

// MetricsSnapshot represents a snapshot of server metrics
type MetricsSnapshot struct {
	Timestamp  time.Time                  `json:"timestamp"`
	Backend    monitoring.MetricsSnapshot `json:"backend"`
	Workspaces []workspace.Info           `json:"workspaces"`
	RenderPool *sandbox.PoolStats         `json:"render_pool,omitempty"`
	Summary    MetricsSummary             `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
	ErrorRate         float64 `json:"error_rate"`
	ActiveConnections int     `json:"active_connections"`
	ActiveWorkspaces  int     `json:"active_workspaces"`
	ActiveDetached    int     `json:"active_detached"`
	TotalPresents     int64   `json:"total_presents"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// Register adds the metrics routes to r
func (ma *MetricsAggregator) Register(r gin.IRoutes) {
	r.GET("/metrics", gin.WrapH(ma.metrics.Handler()))
	r.GET("/metrics/json", ma.GetAggregatedMetrics)
}

// GetAggregatedMetrics returns all metrics as JSON
func (ma *MetricsAggregator) GetAggregatedMetrics(c *gin.Context) {
	backend := ma.metrics.Snapshot()
	snapshot := MetricsSnapshot{
		Timestamp:  time.Now(),
		Backend:    backend,
		Workspaces: ma.manager.List(),
		Summary:    ma.calculateSummary(backend),
	}
	if ma.pool != nil {
		stats := ma.pool.Stats()
		snapshot.RenderPool = &stats
	}

	c.JSON(http.StatusOK, snapshot)
}

// calculateSummary computes summary statistics
func (ma *MetricsAggregator) calculateSummary(snapshot monitoring.MetricsSnapshot) MetricsSummary {
	var avgLatency float64
	if snapshot.RequestCount > 0 {
		avgLatency = snapshot.TotalDuration / float64(snapshot.RequestCount) * 1000
	}

	var errorRate float64
	if snapshot.TotalRequests > 0 {
		errorRate = float64(snapshot.TotalErrors) / float64(snapshot.TotalRequests)
	}

	return MetricsSummary{
		TotalRequests:     snapshot.TotalRequests,
		AverageLatencyMs:  avgLatency,
		ErrorRate:         errorRate,
		ActiveConnections: int(snapshot.ActiveConnections),
		ActiveWorkspaces:  int(snapshot.ActiveWorkspaces),
		ActiveDetached:    int(snapshot.ActiveDetached),
		TotalPresents:     snapshot.TotalPresents,
		UptimeSeconds:     ma.metrics.UptimeSeconds(),
	}
}
