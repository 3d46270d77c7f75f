// Package rate provides Redis-backed fixed-window primitives used to throttle
// unauthenticated entry points per client.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - grl: login per-client
//   - grr: recovery start per-client
//
// # What this package must NOT do
//
//   - Implement per-user lockout (that lives in internal/limiters).
//   - Be imported outside the goGate module.
package rate
