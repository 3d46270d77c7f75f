// Package password implements credential hashing, verification, and random secret
// generation for goGate.
//
// # Algorithms
//
// New credentials are hashed with bcrypt. Argon2id PHC strings written by older
// deployments still verify:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Verifier.NeedsUpgrade] reports true for any hash that is not bcrypt at the
// configured cost so the Engine can rehash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Length policy is checked here via
// [CheckLength] but the bounds come from the Engine configuration.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials. Callers supply plaintext and receive hashes.
//   - Import any other goGate package.
//   - Log plaintext secrets or hash parameters at runtime.
package password
