// Package flows contains pure-function orchestrators for the Engine's
// multi-step operations.
//
// Each flow function (RunLogin, RunStartRecovery, RunSubmitAnswers,
// RunChangePassword, ...) accepts a typed dependency struct of function fields
// and returns results without side-effects beyond those dependencies. The
// Engine builds the dependency structs once at Build time.
//
// # Architecture boundaries
//
// Flow functions coordinate the session manager, attempt guard, hashers,
// persistence, mailer, audit and metrics. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goGate (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
