// Package config provides 12-factor configuration for the playground server.
//
// Configuration is loaded from environment variables with defaults.
// CLI flags in cmd/server override environment variables.
//
// Configuration Sections:
//   - Server: listen address and allowed CORS origins
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//   - Preview: detached window attach timeout, socket write timeout, headless mirror
//   - Sandbox: script budget and render pool size
//   - Workspace: idle reaping, workspace cap, extra templates directory
//   - Export: download base name, import size cap, import from URL
//
// Environment Variables:
//   - PORT, HOST, CORS_ORIGINS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - PREVIEW_ATTACH_TIMEOUT, PREVIEW_WRITE_TIMEOUT, PREVIEW_HEADLESS_ENABLED
//   - SANDBOX_TIMEOUT, SANDBOX_POOL_SIZE
//   - WORKSPACE_IDLE_TTL, WORKSPACE_MAX, TEMPLATES_DIR
//   - EXPORT_FILENAME, IMPORT_MAX_BYTES, IMPORT_URL_ENABLED, IMPORT_URL_TIMEOUT
package config
