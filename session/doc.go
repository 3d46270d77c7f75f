// Package session provides Redis-backed session persistence for goGate.
//
// # Session kinds
//
// A session is either Authenticated (a logged-in user, optionally with a selected
// profile) or Recovery (an in-progress forgot-password or unlock challenge). The two
// are never mixed: a Recovery session carries no profile and an Authenticated
// session carries no challenge.
//
// # Storage layout
//
// Each session is one Redis hash keyed by "<prefix>:<sessionID>" whose fields are
// written by a versioned field encoder. Kind-guarded mutations (setting the profile,
// storing the challenge, destroying a recovery session) run as Lua scripts so the
// guard and the write are atomic.
//
// # Architecture boundaries
//
// This package owns the [Store] (Redis operations), the [Manager] (kind rules and
// TTLs), and the [Session] model. It does NOT evaluate permissions, verify
// credentials, or decide recovery outcomes.
//
// # What this package must NOT do
//
//   - Import goGate, permission, or dispatch (no upward imports).
//   - Store plaintext secrets or answer hashes in [Session] fields.
package session
