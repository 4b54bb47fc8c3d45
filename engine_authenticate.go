package scopeAuth

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/MrEthical07/scopeAuth/internal/flows"
	"github.com/MrEthical07/scopeAuth/internal/rate"
	"github.com/MrEthical07/scopeAuth/scope"
)

// Authenticate verifies creds and issues a bearer token carrying the subset
// of creds.Scopes the principal is entitled to.
//
// An unknown username, a wrong password, a malformed stored hash and a
// disabled principal all return [ErrInvalidCredentials]. A directory outage
// returns an error matching [ErrDirectoryUnavailable]. When the stored hash
// uses weaker parameters or a legacy scheme it is replaced after the
// password is verified; failure to do so is logged and does not fail the
// login.
func (e *Engine) Authenticate(ctx context.Context, creds Credentials) (*TokenGrant, error) {
	if e == nil || e.codec == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		defer e.observeLatency(MetricAuthenticateLatency, time.Now())
	}

	res, err := internalflows.RunLogin(ctx, creds.Username, creds.Password, creds.Scopes, e.loginDeps)
	if err != nil {
		return nil, err
	}

	return &TokenGrant{
		AccessToken: res.AccessToken,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   e.config.JWT.AccessTTL,
		Scopes:      res.Scopes,
	}, nil
}

// grantScopes narrows the requested scopes to the entitled ones, dropping
// names the registry does not know.
func (e *Engine) grantScopes(requested, entitled []string) []string {
	granted := scope.Intersect(requested, entitled)
	if e.registry != nil {
		granted = e.registry.Filter(granted)
	}
	return granted
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
		DummyHash:              e.dummyHash,
		ClientIPFromContext:    ClientIPFromContext,
		FindByUsername:         e.findByUsername,
		UpdatePasswordHash:     e.updatePasswordHash,
		VerifyPassword:         e.hasher.Verify,
		PasswordNeedsRehash:    e.hasher.NeedsRehash,
		HashPassword:           e.hasher.Hash,
		GrantScopes:            e.grantScopes,
		IssueAccessToken: func(subject string, scopes []string) (string, error) {
			return e.codec.Encode(subject, scopes, e.config.JWT.AccessTTL)
		},
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.warnf,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:          int(MetricLoginSuccess),
			LoginFailure:          int(MetricLoginFailure),
			LoginRateLimited:      int(MetricLoginRateLimited),
			LimiterUnavailable:    int(MetricLimiterUnavailable),
			PasswordRehash:        int(MetricPasswordRehash),
			PasswordRehashFailure: int(MetricPasswordRehashFailure),
			MalformedHash:         int(MetricMalformedHash),
			DirectoryUnavailable:  int(MetricDirectoryUnavailable),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
			PasswordRehash:   auditEventPasswordRehash,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:       ErrEngineNotReady,
			InvalidCredentials:   ErrInvalidCredentials,
			LoginRateLimited:     ErrLoginRateLimited,
			PrincipalNotFound:    ErrPrincipalNotFound,
			DirectoryUnavailable: ErrDirectoryUnavailable,
			MalformedHash:        ErrMalformedHash,
		},
	}

	if e.rateLimiter != nil {
		deps.CheckLoginRate = func(ctx context.Context, username, ip string) error {
			err := e.rateLimiter.CheckLogin(ctx, username, ip)
			if errors.Is(err, rate.ErrRateLimited) {
				return ErrLoginRateLimited
			}
			return err
		}
		deps.IncrementLoginRate = e.rateLimiter.IncrementLogin
		deps.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	return deps
}
