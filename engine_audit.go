package scopeAuth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLoginRateLimited         = "login_rate_limited"
	auditEventPasswordRehash           = "password_rehash"
	auditEventAuthorizeDenied          = "authorize_denied"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeInvalidOld = "password_change_invalid_old"
	auditEventPasswordChangeReuse      = "password_change_reuse_attempt"
	auditEventPasswordChangeFailure    = "password_change_failure"
)

// AuditErrorCode is the stable, non-sensitive error label written into
// [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrInvalidCredentials   AuditErrorCode = "invalid_credentials"
	auditErrRateLimited          AuditErrorCode = "rate_limited"
	auditErrInvalidToken         AuditErrorCode = "invalid_token"
	auditErrExpiredToken         AuditErrorCode = "expired_token"
	auditErrInsufficientScope    AuditErrorCode = "insufficient_scope"
	auditErrPrincipalNotFound    AuditErrorCode = "principal_not_found"
	auditErrDirectoryUnavailable AuditErrorCode = "directory_unavailable"
	auditErrPasswordPolicy       AuditErrorCode = "password_policy"
	auditErrPasswordReuse        AuditErrorCode = "password_reuse"
	auditErrInternal             AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	userID int64,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Username:  username,
		UserID:    userID,
		TokenID:   tokenID,
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch KindOf(err) {
	case KindInvalidCredentials, KindMalformedHash:
		return auditErrInvalidCredentials
	case KindRateLimited:
		return auditErrRateLimited
	case KindTokenMissing, KindTokenMalformed:
		return auditErrInvalidToken
	case KindTokenExpired:
		return auditErrExpiredToken
	case KindInsufficientScope:
		return auditErrInsufficientScope
	case KindPrincipalNotFound:
		return auditErrPrincipalNotFound
	case KindDirectoryUnavailable:
		return auditErrDirectoryUnavailable
	case KindPasswordPolicy:
		if errors.Is(err, ErrPasswordReuse) {
			return auditErrPasswordReuse
		}
		return auditErrPasswordPolicy
	default:
		return auditErrInternal
	}
}
