package handler

import (
	"context"
	"net/http"
	"strings"

	scopeAuth "github.com/MrEthical07/scopeAuth"
)

// maxFormBytes bounds the password-grant request body.
const maxFormBytes = 16 << 10

// TokenIssuer is the subset of the engine TokenHandler needs.
type TokenIssuer interface {
	Authenticate(ctx context.Context, creds scopeAuth.Credentials) (*scopeAuth.TokenGrant, error)
}

// TokenResponse is the OAuth2 access token response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// TokenHandler serves the OAuth2 resource owner password grant. It reads
// username, password and scope (space separated) from an
// application/x-www-form-urlencoded body; repeated "scopes" fields are also
// accepted. grant_type may be omitted but must be "password" if present.
func TokenHandler(issuer TokenIssuer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			writeDetail(w, http.StatusBadRequest, "malformed form body")
			return
		}

		if gt := r.PostForm.Get("grant_type"); gt != "" && gt != "password" {
			writeDetail(w, http.StatusBadRequest, "unsupported grant_type")
			return
		}

		username := r.PostForm.Get("username")
		password := r.PostForm.Get("password")
		if username == "" || password == "" {
			writeDetail(w, http.StatusBadRequest, "username and password are required")
			return
		}

		grant, err := issuer.Authenticate(r.Context(), scopeAuth.Credentials{
			Username: username,
			Password: password,
			Scopes:   requestedScopes(r),
		})
		if err != nil {
			WriteError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, TokenResponse{
			AccessToken: grant.AccessToken,
			TokenType:   grant.TokenType,
			ExpiresIn:   int64(grant.ExpiresIn.Seconds()),
			Scope:       strings.Join(grant.Scopes, " "),
		})
	})
}

func requestedScopes(r *http.Request) []string {
	scopes := strings.Fields(r.PostForm.Get("scope"))
	for _, s := range r.PostForm["scopes"] {
		scopes = append(scopes, strings.Fields(s)...)
	}
	return scopes
}
