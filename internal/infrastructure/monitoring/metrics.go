package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Preview metrics
	Compositions    prometheus.Counter
	ComposeDuration prometheus.Histogram
	Presents        *prometheus.CounterVec
	DetachedActive  prometheus.Gauge
	DetachedOpened  prometheus.Counter
	ScriptErrors    prometheus.Counter

	// Workspace metrics
	WorkspacesActive prometheus.Gauge
	WorkspacesTotal  prometheus.Counter
	Exports          *prometheus.CounterVec
	Imports          *prometheus.CounterVec

	// WebSocket metrics
	WSConnections *prometheus.GaugeVec
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveWorkspaces  int64   `json:"active_workspaces"`
	ActiveDetached    int64   `json:"active_detached"`
	ActiveConnections int64   `json:"active_connections"`
	TotalPresents     int64   `json:"total_presents"`
	TotalDuration     float64 `json:"total_duration"` // sum of all request durations
	RequestCount      int64   `json:"request_count"`  // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecanvas_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codecanvas_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codecanvas_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codecanvas_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Service metrics
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecanvas_service_calls_total",
				Help: "Total number of internal service calls",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codecanvas_service_duration_seconds",
				Help:    "Internal service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecanvas_service_errors_total",
				Help: "Total number of internal service errors",
			},
			[]string{"service", "method", "error_type"},
		),

		// Preview metrics
		Compositions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codecanvas_compositions_total",
				Help: "Total number of composed documents",
			},
		),
		ComposeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "codecanvas_compose_duration_seconds",
				Help:    "Document composition duration in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
		),
		Presents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecanvas_presents_total",
				Help: "Total number of documents presented to render targets",
			},
			[]string{"kind", "outcome"},
		),
		DetachedActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codecanvas_detached_previews_active",
				Help: "Number of live detached preview windows",
			},
		),
		DetachedOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codecanvas_detached_previews_opened_total",
				Help: "Total number of detached preview windows opened",
			},
		),
		ScriptErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codecanvas_headless_script_errors_total",
				Help: "Total number of script errors raised inside headless targets",
			},
		),

		// Workspace metrics
		WorkspacesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codecanvas_workspaces_active",
				Help: "Number of open workspaces",
			},
		),
		WorkspacesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codecanvas_workspaces_total",
				Help: "Total number of workspaces created",
			},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecanvas_exports_total",
				Help: "Total number of project exports",
			},
			[]string{"format", "status"},
		),
		Imports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecanvas_imports_total",
				Help: "Total number of project imports",
			},
			[]string{"format", "status"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "codecanvas_ws_connections",
				Help: "Number of active WebSocket connections",
			},
			[]string{"role"},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codecanvas_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	// System metrics
	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "codecanvas_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		m.UptimeSeconds,
	)

	return m
}

// Handler exposes the private registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records an internal service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records an internal service error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// RecordComposition records one document composition
func (m *Metrics) RecordComposition(duration time.Duration) {
	m.Compositions.Inc()
	m.ComposeDuration.Observe(duration.Seconds())
}

// RecordPresent records a present call on a render target
func (m *Metrics) RecordPresent(kind, outcome string) {
	m.Presents.WithLabelValues(kind, outcome).Inc()
	m.mu.Lock()
	m.snapshot.TotalPresents++
	m.mu.Unlock()
}

// RecordScriptError records a script fault confined to a headless target
func (m *Metrics) RecordScriptError() {
	m.ScriptErrors.Inc()
}

// IncDetachedOpened counts a newly opened detached window
func (m *Metrics) IncDetachedOpened() {
	m.DetachedOpened.Inc()
	m.adjustDetached(1)
}

// DecDetachedActive counts a detached window going away
func (m *Metrics) DecDetachedActive() {
	m.adjustDetached(-1)
}

func (m *Metrics) adjustDetached(delta int64) {
	m.mu.Lock()
	m.snapshot.ActiveDetached += delta
	if m.snapshot.ActiveDetached < 0 {
		m.snapshot.ActiveDetached = 0
	}
	m.DetachedActive.Set(float64(m.snapshot.ActiveDetached))
	m.mu.Unlock()
}

// SetWorkspacesActive sets the number of open workspaces
func (m *Metrics) SetWorkspacesActive(count int) {
	m.WorkspacesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveWorkspaces = int64(count)
	m.mu.Unlock()
}

// IncWorkspacesTotal increments the created workspaces counter
func (m *Metrics) IncWorkspacesTotal() {
	m.WorkspacesTotal.Inc()
}

// RecordExport records a project export
func (m *Metrics) RecordExport(format, status string) {
	m.Exports.WithLabelValues(format, status).Inc()
}

// RecordImport records a project import
func (m *Metrics) RecordImport(format, status string) {
	m.Imports.WithLabelValues(format, status).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections for a socket role
func (m *Metrics) IncWSConnections(role string) {
	m.WSConnections.WithLabelValues(role).Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections for a socket role
func (m *Metrics) DecWSConnections(role string) {
	m.WSConnections.WithLabelValues(role).Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns a copy of the tracked values
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds returns the time since the collector was created
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
