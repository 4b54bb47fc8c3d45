package middleware

import (
	"context"
	"net/http"
	"strings"

	scopeAuth "github.com/MrEthical07/scopeAuth"
	"github.com/MrEthical07/scopeAuth/handler"
)

// PrincipalFromContext returns the principal attached by [RequireScopes].
func PrincipalFromContext(ctx context.Context) (*scopeAuth.AuthenticatedPrincipal, bool) {
	return scopeAuth.PrincipalFromContext(ctx)
}

// RequireScopes rejects requests whose bearer token does not carry every
// scope in required. With no scopes it only requires a valid token.
func RequireScopes(auth scopeAuth.Authorizer, required ...string) func(http.Handler) http.Handler {
	required = append([]string(nil), required...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				handler.WriteError(w, scopeAuth.ErrEngineNotReady)
				return
			}

			token, _ := BearerToken(r)
			principal, err := auth.Authorize(r.Context(), token, required...)
			if err != nil {
				handler.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(scopeAuth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	value := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(value, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
