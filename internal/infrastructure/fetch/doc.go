// Package fetch downloads project archives from remote URLs for import.
//
// Requests go through resty over a retryablehttp transport, so connection
// errors and 5xx responses are retried with backoff. An outbound rate
// limiter and a circuit breaker keep a dead host from tying up handlers.
//
// Only public addresses are dialed. The check runs on the resolved address
// of every connection, so a hostname pointing inside the network or a
// redirect to one fails with ErrBlockedAddress. Config.AllowPrivate lifts
// the restriction for local development.
package fetch
