package scopeAuth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/scopeAuth/jwt"
	"github.com/MrEthical07/scopeAuth/password"
)

var (
	// ErrInvalidCredentials is returned for an unknown username, a wrong
	// password, a malformed stored hash or a disabled principal. The cases
	// are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedHash marks a stored hash no configured scheme can parse.
	ErrMalformedHash = password.ErrMalformedHash
	// ErrTokenMissing is returned by Authorize for an empty token.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenMalformed covers bad structure, bad signature and missing claims.
	ErrTokenMalformed = jwt.ErrTokenMalformed
	// ErrTokenExpired is returned when the token's exp is at or before now.
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrInsufficientScope matches every *InsufficientScopeError.
	ErrInsufficientScope = errors.New("insufficient scope")
	// ErrPrincipalNotFound is returned by a UserDirectory for an unknown
	// principal and by Authorize when a token's subject no longer exists.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrDirectoryUnavailable wraps UserDirectory I/O failures.
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	// ErrLoginRateLimited is returned when the failed-login budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrPasswordPolicy is returned by ChangePassword for a new password that
	// violates the configured length bounds.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is returned by ChangePassword when the new password equals the old one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrEngineNotReady is returned when an Engine method is called on an unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// InsufficientScopeError names the first required scope the token lacks.
type InsufficientScopeError struct {
	Scope string
}

func (e *InsufficientScopeError) Error() string {
	return fmt.Sprintf("insufficient scope: %q required", e.Scope)
}

// Is lets errors.Is(err, ErrInsufficientScope) match.
func (e *InsufficientScopeError) Is(target error) bool {
	return target == ErrInsufficientScope
}

// MissingScope extracts the missing scope name from err, if err carries one.
func MissingScope(err error) (string, bool) {
	var scopeErr *InsufficientScopeError
	if errors.As(err, &scopeErr) {
		return scopeErr.Scope, true
	}
	return "", false
}

// ErrorKind is a closed classification of engine failures. Boundary code
// (HTTP adapters, RPC handlers) switches on it instead of matching strings.
type ErrorKind uint8

const (
	// KindUnknown is any error outside the taxonomy, including nil.
	KindUnknown ErrorKind = iota
	KindInvalidCredentials
	KindMalformedHash
	KindTokenMissing
	KindTokenMalformed
	KindTokenExpired
	KindInsufficientScope
	KindPrincipalNotFound
	KindDirectoryUnavailable
	KindRateLimited
	KindPasswordPolicy
)

var kindNames = [...]string{
	KindUnknown:              "unknown",
	KindInvalidCredentials:   "invalid_credentials",
	KindMalformedHash:        "malformed_hash",
	KindTokenMissing:         "token_missing",
	KindTokenMalformed:       "token_malformed",
	KindTokenExpired:         "token_expired",
	KindInsufficientScope:    "insufficient_scope",
	KindPrincipalNotFound:    "principal_not_found",
	KindDirectoryUnavailable: "directory_unavailable",
	KindRateLimited:          "rate_limited",
	KindPasswordPolicy:       "password_policy",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// KindOf classifies err. Order matters: credential failures are checked
// before the underlying causes they may wrap.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrTokenMissing):
		return KindTokenMissing
	case errors.Is(err, ErrTokenExpired):
		return KindTokenExpired
	case errors.Is(err, ErrTokenMalformed):
		return KindTokenMalformed
	case errors.Is(err, ErrInsufficientScope):
		return KindInsufficientScope
	case errors.Is(err, ErrPrincipalNotFound):
		return KindPrincipalNotFound
	case errors.Is(err, ErrDirectoryUnavailable):
		return KindDirectoryUnavailable
	case errors.Is(err, ErrLoginRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrMalformedHash):
		return KindMalformedHash
	case errors.Is(err, ErrPasswordPolicy), errors.Is(err, ErrPasswordReuse):
		return KindPasswordPolicy
	default:
		return KindUnknown
	}
}
