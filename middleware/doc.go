// Package middleware adapts [scopeAuth.Engine] authorization to net/http.
//
// [RequireScopes] reads the bearer token, calls Authorize and either places
// the principal in the request context or writes the error response produced
// by [handler.WriteError]. [ClientIP] records the caller address so login
// throttling and audit events can see it.
//
// This package makes no authorization decisions of its own; every pass or
// reject comes from the Authorizer it wraps.
package middleware
