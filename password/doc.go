// Package password implements password hashing and verification with Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Legacy bcrypt hashes ($2a$, $2b$, $2y$) are verified through [Upgrader] and always
// report [Upgrader.NeedsRehash], so the caller re-hashes them with Argon2id on the
// next successful login. Argon2id hashes produced with weaker parameters report the
// same.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length, reuse)
// is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other scopeAuth package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
