package scopeAuth

import (
	"context"
	"time"

	internalflows "github.com/MrEthical07/scopeAuth/internal/flows"
)

// Authorize validates rawToken and checks that it carries every scope in
// required.
//
// Failures, in evaluation order: [ErrTokenMissing] for an empty token,
// [ErrTokenMalformed] or [ErrTokenExpired] from decoding, an
// [InsufficientScopeError] naming the first required scope the token lacks,
// then [ErrPrincipalNotFound] or [ErrDirectoryUnavailable] from the subject
// lookup. A disabled principal is reported as not found. The returned
// principal carries the token's scopes, not the directory's.
func (e *Engine) Authorize(ctx context.Context, rawToken string, required ...string) (*AuthenticatedPrincipal, error) {
	if e == nil || e.codec == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		defer e.observeLatency(MetricAuthorizeLatency, time.Now())
	}

	res, err := internalflows.RunAuthorize(ctx, rawToken, required, e.authorizeDeps)
	if err != nil {
		return nil, err
	}

	return &AuthenticatedPrincipal{
		ID:       res.ID,
		Username: res.Username,
		Scopes:   res.Scopes,
	}, nil
}

func (e *Engine) authorizeFlowDeps() internalflows.AuthorizeDeps {
	return internalflows.AuthorizeDeps{
		DecodeToken:    e.codec.Decode,
		FindByUsername: e.findByUsername,
		InsufficientScope: func(scope string) error {
			return &InsufficientScopeError{Scope: scope}
		},
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Metrics: internalflows.AuthorizeMetrics{
			AuthorizeSuccess:     int(MetricAuthorizeSuccess),
			TokenMissing:         int(MetricTokenMissing),
			TokenMalformed:       int(MetricTokenMalformed),
			TokenExpired:         int(MetricTokenExpired),
			InsufficientScope:    int(MetricInsufficientScope),
			PrincipalNotFound:    int(MetricPrincipalNotFound),
			DirectoryUnavailable: int(MetricDirectoryUnavailable),
		},
		Events: internalflows.AuthorizeEvents{
			AuthorizeDenied: auditEventAuthorizeDenied,
		},
		Errors: internalflows.AuthorizeErrors{
			EngineNotReady:       ErrEngineNotReady,
			TokenMissing:         ErrTokenMissing,
			TokenMalformed:       ErrTokenMalformed,
			TokenExpired:         ErrTokenExpired,
			PrincipalNotFound:    ErrPrincipalNotFound,
			DirectoryUnavailable: ErrDirectoryUnavailable,
		},
	}
}
