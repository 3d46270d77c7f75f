// Package goGate provides a profile-gated authentication engine: password login
// with a sticky per-user lockout, server-side Redis sessions, security-question
// recovery, and a permission matrix that gates a registry of named operations.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build]. Every
// operation takes the caller's session id explicitly; transports (see httpapi)
// carry it in a cookie.
//
// # Architecture boundaries
//
// goGate is the public surface. It exposes [Engine], [Builder], [Config], the error
// sentinels with [KindOf], and value types ([LoginResult], [HomeInfo], ...). Flow
// orchestration, limiters and audit dispatch live under internal/; sessions,
// permissions, dispatch and hashing are separate public packages.
//
// # What this package must NOT do
//
//   - Expose Redis clients or session encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports goGate (no import cycles).
package goGate
