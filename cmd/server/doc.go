// Package main is the entry point for the CodeCanvas live preview server.
//
// The server keeps an editor page's three buffers (HTML, CSS, JavaScript)
// and every preview surface in sync:
//
//	Editor page ──ws──▶ Workspace coordinator ──▶ embedded frame
//	                                          ├─▶ detached preview window (ws)
//	                                          └─▶ headless mirror (optional)
//
// The server provides:
//   - Editor and preview WebSockets
//   - REST API for workspaces, buffers, export and import
//   - One-off headless renders
//   - Prometheus metrics, rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -templates ./templates
//
//	# Development mode (colored logs, debug level)
//	./server -dev -headless
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
