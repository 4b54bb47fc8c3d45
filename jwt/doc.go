// Package jwt encodes and decodes HS256 access tokens carrying a subject and
// a scope list.
//
// Tokens use compact JWS serialization with claims sub, scopes, iat, exp and
// jti. Decoding distinguishes exactly two failures: [ErrTokenExpired] when the
// clock is at or past exp, and [ErrTokenMalformed] for everything else.
package jwt
