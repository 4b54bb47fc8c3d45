package flows

import "context"

// PrincipalRecord is the flow-local view of a directory principal.
type PrincipalRecord struct {
	ID           int64
	Username     string
	PasswordHash string
	Scopes       []string
	Disabled     bool
}

// AuditFunc emits one audit event. meta is evaluated lazily and may be nil.
type AuditFunc func(
	ctx context.Context,
	eventType string,
	success bool,
	username string,
	userID int64,
	tokenID string,
	err error,
	meta func() map[string]string,
)

func noopAudit(context.Context, string, bool, string, int64, string, error, func() map[string]string) {
}

func noopMetric(int) {}

func noopWarn(string, ...any) {}
