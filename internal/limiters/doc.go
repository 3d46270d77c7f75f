// Package limiters provides the login attempt guard and the recovery answer budget.
//
// # Limiters
//
//   - [Guard]: per-user remaining-attempt counter with a sticky lock flag, backed by an
//     [AttemptStore] whose every call is atomic at the storage boundary.
//   - [RecoveryLimiter]: per-user fixed-window budget on security answer submissions.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Thresholds come from
// Config structs supplied at construction time. The Postgres [AttemptStore] lives in
// store/postgres and satisfies the same interface.
//
// # What this package must NOT do
//
//   - Import goGate or any sibling internal package except internal/rate.
//   - Make policy decisions beyond counting. Flow functions decide consequences.
package limiters
