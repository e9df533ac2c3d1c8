/*
Package monitoring provides metrics collection for the preview server.

# Overview

This package implements Prometheus-based metrics for the backend: HTTP
requests, WebSocket traffic, document composition, preview presentation
per target kind, detached window lifecycle, workspaces and archive exports.

Each Metrics value owns a private registry, so several servers (or tests)
can live in one process without duplicate registration panics.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record preview activity
	metrics.RecordPresent("detached", "ok")
	metrics.SetDetachedActive(1)

	// Time operations
	timer := monitoring.NewTimer(metrics, "archive", "export")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
