package flows

import (
	"context"
	"errors"
	"fmt"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Subject     string
	AccessToken string
	Scopes      []string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess          int
	LoginFailure          int
	LoginRateLimited      int
	LimiterUnavailable    int
	PasswordRehash        int
	PasswordRehashFailure int
	MalformedHash         int
	DirectoryUnavailable  int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	PasswordRehash   string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady       error
	InvalidCredentials   error
	LoginRateLimited     error
	PrincipalNotFound    error
	DirectoryUnavailable error
	MalformedHash        error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool
	// DummyHash is verified against when the username is unknown so the
	// response time does not reveal whether the account exists.
	DummyHash string

	ClientIPFromContext func(context.Context) string

	// CheckLoginRate returns an error matching Errors.LoginRateLimited when
	// the budget is spent. Any other error means the limiter is down and the
	// login proceeds. Nil disables throttling.
	CheckLoginRate     func(ctx context.Context, username, ip string) error
	IncrementLoginRate func(ctx context.Context, username, ip string) error
	ResetLoginRate     func(ctx context.Context, username string) error

	FindByUsername     func(ctx context.Context, username string) (PrincipalRecord, error)
	UpdatePasswordHash func(ctx context.Context, id int64, hash string) error

	VerifyPassword      func(plaintext, encoded string) (bool, error)
	PasswordNeedsRehash func(encoded string) (bool, error)
	HashPassword        func(plaintext string) (string, error)

	// GrantScopes narrows the requested scopes to what the principal may hold.
	GrantScopes      func(requested, entitled []string) []string
	IssueAccessToken func(subject string, scopes []string) (string, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin verifies credentials, upgrades the stored hash when needed and
// issues an access token. Unknown users, wrong passwords, malformed stored
// hashes and disabled principals all return Errors.InvalidCredentials.
func RunLogin(ctx context.Context, username, password string, requested []string, deps LoginDeps) (*LoginResult, error) {
	normalizeLoginDeps(&deps)
	if deps.FindByUsername == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueAccessToken == nil ||
		deps.GrantScopes == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, username, ip); err != nil {
			if errors.Is(err, deps.Errors.LoginRateLimited) {
				deps.MetricInc(deps.Metrics.LoginRateLimited)
				deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, username, 0, "", deps.Errors.LoginRateLimited, nil)
				return nil, deps.Errors.LoginRateLimited
			}
			deps.MetricInc(deps.Metrics.LimiterUnavailable)
			deps.Warn("scopeAuth: login limiter unavailable, continuing without throttling: %v", err)
		}
	}

	fail := func(userID int64, reason string) error {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, username, ip); err != nil {
				deps.MetricInc(deps.Metrics.LimiterUnavailable)
				deps.Warn("scopeAuth: login limiter increment failed: %v", err)
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, username, userID, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return deps.Errors.InvalidCredentials
	}

	if password == "" {
		return nil, fail(0, "empty_password")
	}

	principal, err := deps.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, deps.Errors.PrincipalNotFound) {
			if deps.DummyHash != "" {
				_, _ = deps.VerifyPassword(password, deps.DummyHash)
			}
			return nil, fail(0, "user_not_found")
		}

		deps.MetricInc(deps.Metrics.DirectoryUnavailable)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, username, 0, "", deps.Errors.DirectoryUnavailable, func() map[string]string {
			return map[string]string{
				"reason": "directory_unavailable",
			}
		})
		if errors.Is(err, deps.Errors.DirectoryUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.DirectoryUnavailable, err)
	}

	ok, err := deps.VerifyPassword(password, principal.PasswordHash)
	if err != nil {
		if deps.Errors.MalformedHash != nil && errors.Is(err, deps.Errors.MalformedHash) {
			deps.MetricInc(deps.Metrics.MalformedHash)
			deps.Warn("scopeAuth: stored password hash for principal %d is malformed", principal.ID)
			return nil, fail(principal.ID, "malformed_hash")
		}
		return nil, fail(principal.ID, "verify_error")
	}
	if !ok {
		return nil, fail(principal.ID, "password_mismatch")
	}
	if principal.Disabled {
		return nil, fail(principal.ID, "disabled")
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsRehash != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		upgradeStoredHash(ctx, principal, password, deps)
	}
	password = ""

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, username); err != nil {
			deps.Warn("scopeAuth: login limiter reset failed: %v", err)
		}
	}

	granted := deps.GrantScopes(requested, principal.Scopes)
	token, err := deps.IssueAccessToken(principal.Username, granted)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, username, principal.ID, "", err, func() map[string]string {
			return map[string]string{
				"reason": "token_issue_failed",
			}
		})
		return nil, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, principal.Username, principal.ID, "", nil, nil)

	return &LoginResult{
		Subject:     principal.Username,
		AccessToken: token,
		Scopes:      granted,
	}, nil
}

// upgradeStoredHash replaces a weak or legacy stored hash. It runs only after
// a successful verify and never fails the login.
func upgradeStoredHash(ctx context.Context, principal PrincipalRecord, password string, deps LoginDeps) {
	needs, err := deps.PasswordNeedsRehash(principal.PasswordHash)
	if err != nil || !needs {
		return
	}

	upgraded, err := deps.HashPassword(password)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordRehashFailure)
		deps.Warn("scopeAuth: password hash upgrade generation failed for principal %d", principal.ID)
		return
	}
	if err := deps.UpdatePasswordHash(ctx, principal.ID, upgraded); err != nil {
		deps.MetricInc(deps.Metrics.PasswordRehashFailure)
		deps.Warn("scopeAuth: password hash upgrade update failed for principal %d: %v", principal.ID, err)
		return
	}

	deps.MetricInc(deps.Metrics.PasswordRehash)
	deps.EmitAudit(ctx, deps.Events.PasswordRehash, true, principal.Username, principal.ID, "", nil, nil)
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
}
