// Package scope provides the scope registry and the small set algebra used
// when issuing and checking access tokens.
//
// Scopes are opaque strings following the OAuth2 scope-token grammar. A token
// carries the intersection of the scopes a client requested and the scopes the
// principal is entitled to; a guarded route names the scopes it requires and
// the first one missing from the token is reported.
//
// # What this package must NOT do
//
//   - Import the root scopeAuth package.
//   - Decide what a missing scope means at the HTTP layer.
package scope
