package scopeAuth

import (
	"context"

	internalflows "github.com/MrEthical07/scopeAuth/internal/flows"
)

// ChangePassword replaces the stored hash of principal id after verifying
// current. next must satisfy Config.Password length bounds and differ from
// current. A successful change also clears the principal's failed-login
// counter.
func (e *Engine) ChangePassword(ctx context.Context, id int64, current, next string) error {
	if e == nil || e.hasher == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	return internalflows.RunChangePassword(ctx, id, current, next, e.passwordChangeDeps)
}

func (e *Engine) passwordChangeFlowDeps() internalflows.PasswordChangeDeps {
	deps := internalflows.PasswordChangeDeps{
		MinPasswordLength:  e.config.Password.MinLength,
		MaxPasswordBytes:   e.config.Password.MaxPasswordBytes,
		FindByID:           e.findByID,
		UpdatePasswordHash: e.updatePasswordHash,
		VerifyPassword:     e.hasher.Verify,
		HashPassword:       e.hasher.Hash,
		MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:          e.emitAudit,
		Warn:               e.warnf,
		Metrics: internalflows.PasswordChangeMetrics{
			Success: int(MetricPasswordChangeSuccess),
			Failure: int(MetricPasswordChangeFailure),
		},
		Events: internalflows.PasswordChangeEvents{
			Success:    auditEventPasswordChangeSuccess,
			Failure:    auditEventPasswordChangeFailure,
			InvalidOld: auditEventPasswordChangeInvalidOld,
			Reuse:      auditEventPasswordChangeReuse,
		},
		Errors: internalflows.PasswordChangeErrors{
			EngineNotReady:       ErrEngineNotReady,
			InvalidCredentials:   ErrInvalidCredentials,
			PasswordPolicy:       ErrPasswordPolicy,
			PasswordReuse:        ErrPasswordReuse,
			PrincipalNotFound:    ErrPrincipalNotFound,
			DirectoryUnavailable: ErrDirectoryUnavailable,
		},
	}
	if e.rateLimiter != nil {
		deps.ResetLoginRate = e.rateLimiter.ResetLogin
	}
	return deps
}
