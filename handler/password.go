package handler

import (
	"context"
	"net/http"

	"github.com/MrEthical07/scopeAuth"
)

// PasswordChanger is satisfied by *scopeAuth.Engine.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, id int64, current, next string) error
}

// ChangePasswordHandler replaces the authenticated principal's password.
// It must run behind middleware.RequireScopes, which attaches the principal.
// The form carries current_password and new_password; success is 204.
func ChangePasswordHandler(changer PasswordChanger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeDetail(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		principal, ok := scopeAuth.PrincipalFromContext(r.Context())
		if !ok {
			WriteError(w, scopeAuth.ErrTokenMissing)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			writeDetail(w, http.StatusBadRequest, "malformed form body")
			return
		}
		current := r.PostForm.Get("current_password")
		next := r.PostForm.Get("new_password")
		if current == "" || next == "" {
			writeDetail(w, http.StatusBadRequest, "current_password and new_password are required")
			return
		}

		if err := changer.ChangePassword(r.Context(), principal.ID, current, next); err != nil {
			WriteError(w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
	})
}
