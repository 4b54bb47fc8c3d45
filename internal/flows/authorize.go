package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/scopeAuth/jwt"
	"github.com/MrEthical07/scopeAuth/scope"
)

// AuthorizeResult is the flow-local authorized principal.
type AuthorizeResult struct {
	ID       int64
	Username string
	Scopes   []string
	TokenID  string
}

// AuthorizeMetrics carries metric IDs needed by the authorize flow.
type AuthorizeMetrics struct {
	AuthorizeSuccess     int
	TokenMissing         int
	TokenMalformed       int
	TokenExpired         int
	InsufficientScope    int
	PrincipalNotFound    int
	DirectoryUnavailable int
}

// AuthorizeEvents carries audit event names used by the authorize flow.
type AuthorizeEvents struct {
	AuthorizeDenied string
}

// AuthorizeErrors carries host-level sentinel errors used by the authorize flow.
type AuthorizeErrors struct {
	EngineNotReady       error
	TokenMissing         error
	TokenMalformed       error
	TokenExpired         error
	PrincipalNotFound    error
	DirectoryUnavailable error
}

// AuthorizeDeps captures bearer-token authorization dependencies.
type AuthorizeDeps struct {
	DecodeToken    func(raw string) (*jwt.Payload, error)
	FindByUsername func(ctx context.Context, username string) (PrincipalRecord, error)
	// InsufficientScope builds the host error naming the missing scope.
	InsufficientScope func(scope string) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AuthorizeMetrics
	Events  AuthorizeEvents
	Errors  AuthorizeErrors
}

// RunAuthorize decodes raw, checks the required scopes in order and resolves
// the token subject against the directory.
func RunAuthorize(ctx context.Context, raw string, required []string, deps AuthorizeDeps) (*AuthorizeResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.DecodeToken == nil || deps.FindByUsername == nil || deps.InsufficientScope == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if raw == "" {
		deps.MetricInc(deps.Metrics.TokenMissing)
		return nil, deps.Errors.TokenMissing
	}

	payload, err := deps.DecodeToken(raw)
	if err != nil {
		if errors.Is(err, deps.Errors.TokenExpired) {
			deps.MetricInc(deps.Metrics.TokenExpired)
			return nil, err
		}
		deps.MetricInc(deps.Metrics.TokenMalformed)
		if errors.Is(err, deps.Errors.TokenMalformed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.TokenMalformed, err)
	}

	if missing, ok := scope.FirstMissing(required, payload.Scopes); !ok {
		deps.MetricInc(deps.Metrics.InsufficientScope)
		scopeErr := deps.InsufficientScope(missing)
		deps.EmitAudit(ctx, deps.Events.AuthorizeDenied, false, payload.Subject, 0, payload.ID, scopeErr, func() map[string]string {
			return map[string]string{
				"reason": "insufficient_scope",
				"scope":  missing,
			}
		})
		return nil, scopeErr
	}

	principal, err := deps.FindByUsername(ctx, payload.Subject)
	if err != nil {
		if errors.Is(err, deps.Errors.PrincipalNotFound) {
			deps.MetricInc(deps.Metrics.PrincipalNotFound)
			deps.EmitAudit(ctx, deps.Events.AuthorizeDenied, false, payload.Subject, 0, payload.ID, deps.Errors.PrincipalNotFound, func() map[string]string {
				return map[string]string{
					"reason": "principal_not_found",
				}
			})
			return nil, deps.Errors.PrincipalNotFound
		}
		deps.MetricInc(deps.Metrics.DirectoryUnavailable)
		if errors.Is(err, deps.Errors.DirectoryUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.DirectoryUnavailable, err)
	}
	if principal.Disabled {
		deps.MetricInc(deps.Metrics.PrincipalNotFound)
		deps.EmitAudit(ctx, deps.Events.AuthorizeDenied, false, payload.Subject, principal.ID, payload.ID, deps.Errors.PrincipalNotFound, func() map[string]string {
			return map[string]string{
				"reason": "disabled",
			}
		})
		return nil, deps.Errors.PrincipalNotFound
	}

	deps.MetricInc(deps.Metrics.AuthorizeSuccess)

	return &AuthorizeResult{
		ID:       principal.ID,
		Username: principal.Username,
		Scopes:   payload.Scopes,
		TokenID:  payload.ID,
	}, nil
}
