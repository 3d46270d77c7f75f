// Package permission provides the profile permission matrix used to gate operation
// dispatch.
//
// # Model
//
// An operation is identified by a [Key] of (area, object, method). The [Registry]
// assigns each known key a bit; a [Matrix] holds one fixed-width [Mask] per profile.
// [Matrix.IsAllowed] is a pure lookup: an unknown profile, an unknown key, or an
// empty component is simply "not allowed".
//
// # Mask sizes
//
// Supported widths: 64, 128, 256, and 512 bits, chosen at registry construction.
// When the root bit is reserved, a profile holding it is allowed every registered key.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure. Grant documents are parsed from
// YAML here; database loading lives in store/postgres.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import goGate, session, or dispatch.
//   - Change grants after [Matrix.Freeze].
package permission
