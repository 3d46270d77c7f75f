// Package middleware adapts goGate sessions to net/http.
//
// # Session carrier
//
// The session id travels in an HttpOnly cookie ([DefaultCookieName]). [Sessions]
// resolves it on every request and stores the result in the request context;
// [Guard] rejects requests whose session is missing or of the wrong kind.
//
// # Request plumbing
//
//   - [RequestID] propagates or mints an X-Request-Id and the client IP into
//     the context the Engine reads for audit and throttling.
//   - [AccessLog] writes one zap entry per request.
//   - [Recover] turns handler panics into a 500.
//   - [RateLimit] applies an in-process token bucket per client IP.
//
// # What this package must NOT do
//
//   - Decide credentials, profiles or recovery outcomes (the Engine does).
//   - Touch Redis directly.
package middleware
