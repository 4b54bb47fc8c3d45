package flows

import (
	"context"
	"errors"
	"fmt"
)

// PasswordChangeMetrics carries metric IDs needed by the password change flow.
type PasswordChangeMetrics struct {
	Success int
	Failure int
}

// PasswordChangeEvents carries audit event names used by the password change flow.
type PasswordChangeEvents struct {
	Success    string
	Failure    string
	InvalidOld string
	Reuse      string
}

// PasswordChangeErrors carries host-level sentinel errors used by the password change flow.
type PasswordChangeErrors struct {
	EngineNotReady       error
	InvalidCredentials   error
	PasswordPolicy       error
	PasswordReuse        error
	PrincipalNotFound    error
	DirectoryUnavailable error
}

// PasswordChangeDeps captures dependencies for an explicit credential change.
type PasswordChangeDeps struct {
	MinPasswordLength int
	MaxPasswordBytes  int

	FindByID           func(ctx context.Context, id int64) (PrincipalRecord, error)
	UpdatePasswordHash func(ctx context.Context, id int64, hash string) error
	VerifyPassword     func(plaintext, encoded string) (bool, error)
	HashPassword       func(plaintext string) (string, error)
	ResetLoginRate     func(ctx context.Context, username string) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics PasswordChangeMetrics
	Events  PasswordChangeEvents
	Errors  PasswordChangeErrors
}

// RunChangePassword replaces the stored hash of principal id after checking
// the current password and the length policy for the new one.
func RunChangePassword(ctx context.Context, id int64, current, next string, deps PasswordChangeDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.FindByID == nil ||
		deps.UpdatePasswordHash == nil ||
		deps.VerifyPassword == nil ||
		deps.HashPassword == nil {
		return deps.Errors.EngineNotReady
	}

	reject := func(username, event string, err error, reason string) error {
		deps.MetricInc(deps.Metrics.Failure)
		var meta func() map[string]string
		if reason != "" {
			meta = func() map[string]string {
				return map[string]string{
					"reason": reason,
				}
			}
		}
		deps.EmitAudit(ctx, event, false, username, id, "", err, meta)
		return err
	}

	if id <= 0 || current == "" {
		return reject("", deps.Events.Failure, deps.Errors.InvalidCredentials, "invalid_input")
	}
	if len(next) < deps.MinPasswordLength || next == "" {
		return reject("", deps.Events.Failure, deps.Errors.PasswordPolicy, "too_short")
	}
	if deps.MaxPasswordBytes > 0 && len(next) > deps.MaxPasswordBytes {
		return reject("", deps.Events.Failure, deps.Errors.PasswordPolicy, "too_long")
	}

	principal, err := deps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, deps.Errors.PrincipalNotFound) {
			return reject("", deps.Events.Failure, deps.Errors.PrincipalNotFound, "user_not_found")
		}
		if !errors.Is(err, deps.Errors.DirectoryUnavailable) {
			err = fmt.Errorf("%w: %v", deps.Errors.DirectoryUnavailable, err)
		}
		return reject("", deps.Events.Failure, err, "directory_unavailable")
	}
	if principal.Disabled {
		return reject(principal.Username, deps.Events.Failure, deps.Errors.InvalidCredentials, "disabled")
	}

	ok, err := deps.VerifyPassword(current, principal.PasswordHash)
	if err != nil || !ok {
		return reject(principal.Username, deps.Events.InvalidOld, deps.Errors.InvalidCredentials, "")
	}

	if same, err := deps.VerifyPassword(next, principal.PasswordHash); err == nil && same {
		return reject(principal.Username, deps.Events.Reuse, deps.Errors.PasswordReuse, "")
	}

	hash, err := deps.HashPassword(next)
	if err != nil {
		return reject(principal.Username, deps.Events.Failure, deps.Errors.PasswordPolicy, "hash_policy")
	}

	if err := deps.UpdatePasswordHash(ctx, principal.ID, hash); err != nil {
		if !errors.Is(err, deps.Errors.DirectoryUnavailable) && !errors.Is(err, deps.Errors.PrincipalNotFound) {
			err = fmt.Errorf("%w: %v", deps.Errors.DirectoryUnavailable, err)
		}
		return reject(principal.Username, deps.Events.Failure, err, "update_hash_failed")
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, principal.Username); err != nil {
			deps.Warn("scopeAuth: login limiter reset failed after password change: %v", err)
		}
	}

	current = ""
	next = ""
	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, principal.Username, principal.ID, "", nil, nil)

	return nil
}
