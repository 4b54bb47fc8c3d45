// Package rate provides the Redis-backed failed-login limiter used by the
// authentication flow.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// namespaced by a configurable prefix:
//   - <prefix>:al:  login failures per username
//   - <prefix>:ali: login failures per client IP
//
// # What this package must NOT do
//
//   - Decide whether a backend outage blocks logins. It reports
//     [ErrRedisUnavailable] and the caller chooses.
//   - Be imported outside the scopeAuth module.
package rate
