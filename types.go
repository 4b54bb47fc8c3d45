package scopeAuth

import (
	"context"
	"time"
)

// Credentials is the transient input to a login. The plaintext password is
// never persisted or logged.
type Credentials struct {
	Username string
	Password string
	// Scopes are the scopes the client asks for. The issued token carries
	// the subset the principal is entitled to.
	Scopes []string
}

// StoredPrincipal is a user record as held by a [UserDirectory].
//
// PasswordHash is always the output of a password hasher. It is replaced only
// by rehash-on-login or [Engine.ChangePassword].
type StoredPrincipal struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	FullName     string
	// Scopes are the scopes this principal may be granted.
	Scopes    []string
	Disabled  bool
	CreatedAt time.Time
}

// AuthenticatedPrincipal is the identity attached to an authorized request.
// It is rebuilt from the token and the directory on every call.
type AuthenticatedPrincipal struct {
	ID       int64
	Username string
	// Scopes are the scopes carried by the presented token.
	Scopes []string
}

// HasScope reports whether the principal's token carried name.
func (p *AuthenticatedPrincipal) HasScope(name string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scopes {
		if s == name {
			return true
		}
	}
	return false
}

// TokenGrant is the result of a successful [Engine.Authenticate].
type TokenGrant struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	Scopes      []string
}

// TokenTypeBearer is the only token type the engine issues.
const TokenTypeBearer = "bearer"

// UserDirectory is the lookup and credential-update surface the engine needs
// from a user store.
//
// Implementations return an error matching [ErrPrincipalNotFound] for unknown
// principals and an error matching [ErrDirectoryUnavailable] for I/O
// failures. Every call must honor ctx cancellation.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (StoredPrincipal, error)
	FindByID(ctx context.Context, id int64) (StoredPrincipal, error)
	UpdatePasswordHash(ctx context.Context, id int64, newHash string) error
}

// Authorizer validates a bearer token against required scopes.
type Authorizer interface {
	Authorize(ctx context.Context, rawToken string, required ...string) (*AuthenticatedPrincipal, error)
}

// Authenticator is the full credential and access surface implemented by [Engine].
type Authenticator interface {
	Authorizer
	Authenticate(ctx context.Context, creds Credentials) (*TokenGrant, error)
}

var _ Authenticator = (*Engine)(nil)
