// Package internal contains helper utilities that are intentionally private to goGate,
// including secure random generation and client fingerprint helpers.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: function-injected orchestrators for login and recovery
//   - limiters: login attempt guard and recovery answer budget
//   - rate: Redis fixed-window primitives for per-client throttling
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGate API.
//   - Be imported by any package outside the goGate module.
package internal
