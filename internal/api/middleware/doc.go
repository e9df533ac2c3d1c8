// Package middleware provides the gin middleware stacked in front of the
// playground routes.
//
//   - CORS: cross-origin access for the editor and preview pages, with
//     configurable origins and the X-Revision header exposed
//   - RateLimit: per-IP token buckets, idle buckets evicted after IdleTTL
//   - GlobalRateLimit: one bucket shared by every client
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(origins)))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
