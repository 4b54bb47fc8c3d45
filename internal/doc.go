// Package internal holds the implementation details behind the public
// scopeAuth API.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: pure-function orchestrators for every Engine operation
//   - rate: Redis-backed failed-login limiter
//   - security: posture report behind Engine.SecurityReport
//   - settings: YAML and environment configuration for the scopeauthd daemon
//
// Nothing here is exported through the public API.
package internal
