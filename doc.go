// Package scopeAuth is the authentication and authorization core of a CRUD
// backend: it turns a username and password into an HS256 bearer token
// carrying OAuth2-style scopes, and checks such tokens against the scopes a
// request requires.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// scopeAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserDirectory] contract and the error taxonomy ([KindOf]). Flow
// orchestration, rate limiting and audit dispatch live under internal/.
// Password hashing ([password]), token encoding ([jwt]) and scope set
// arithmetic ([scope]) are standalone packages usable without an Engine.
//
// # What this package must NOT do
//
//   - Log or audit plaintext passwords, stored hashes or raw tokens.
//   - Distinguish an unknown username from a wrong password in any error.
//   - Import any sub-package that re-imports scopeAuth (no import cycles).
//
// # Performance contract
//
// Authorize is the hot path: one HMAC verification and one directory lookup,
// with no redis round-trip. Authenticate pays for one Argon2id verification
// (two when the stored hash is upgraded) and, with rate limiting enabled,
// up to three redis round-trips.
package scopeAuth
