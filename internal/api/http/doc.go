// Package http provides the REST endpoints and page routes of the server.
//
// Endpoints:
//   - GET  /, /preview/:workspace/:target: editor and preview window pages
//   - POST /api/workspaces, GET /api/workspaces[/:id], DELETE /api/workspaces/:id
//   - PUT  /api/workspaces/:id/buffers/:buffer: edit one buffer
//   - GET  /api/workspaces/:id/document, /modified, /snapshot, /export
//   - POST /api/workspaces/:id/preview, /refresh, /import, /ui
//   - GET  /api/templates, POST /api/render, POST /api/logs
//   - GET  /health, /metrics, /metrics/json
//
// Errors are returned as {"error": message} with a 4xx or 5xx status
// derived from the domain error.
package http
