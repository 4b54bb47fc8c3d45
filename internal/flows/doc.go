// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunLogin, RunAuthorize, RunChangePassword) accepts a
// typed dependency struct and returns results without side effects beyond
// those dependencies. The Engine builds the deps once and stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user directory, password hasher,
// token codec, rate limiter, audit dispatcher and metrics. They do NOT own
// any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import scopeAuth (to avoid import cycles). Host sentinels arrive
//     through the Errors field of each deps struct.
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
