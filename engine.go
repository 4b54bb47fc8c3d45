package scopeAuth

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/scopeAuth/internal/audit"
	internalflows "github.com/MrEthical07/scopeAuth/internal/flows"
	"github.com/MrEthical07/scopeAuth/internal/rate"
	"github.com/MrEthical07/scopeAuth/jwt"
	"github.com/MrEthical07/scopeAuth/password"
	"github.com/MrEthical07/scopeAuth/scope"
	"github.com/sirupsen/logrus"
)

// Engine authenticates credentials into scoped bearer tokens and authorizes
// requests carrying them. Build one with [New]; it is immutable afterwards
// and safe for concurrent use.
type Engine struct {
	config      Config
	codec       *jwt.Codec
	hasher      password.Hasher
	dummyHash   string
	directory   UserDirectory
	registry    *scope.Registry
	rateLimiter *rate.Limiter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	logger      logrus.FieldLogger
	clock       func() time.Time

	loginDeps          internalflows.LoginDeps
	authorizeDeps      internalflows.AuthorizeDeps
	passwordChangeDeps internalflows.PasswordChangeDeps
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// KnownScopes returns the configured scope names and descriptions. It is
// empty when no scope registry is configured.
func (e *Engine) KnownScopes() map[string]string {
	if e == nil || e.registry == nil {
		return map[string]string{}
	}
	return e.registry.Describe()
}

// AccessTTL is the lifetime of tokens issued by Authenticate.
func (e *Engine) AccessTTL() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.JWT.AccessTTL
}

// DirectoryTimeout is the bound applied to every directory call, zero when
// calls rely on the caller's context alone.
func (e *Engine) DirectoryTimeout() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Directory.Timeout
}

// HashPassword hashes plaintext with the current scheme. Use it to provision
// directory records.
func (e *Engine) HashPassword(plaintext string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plaintext)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeLatency(id MetricID, start time.Time) {
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) warnf(format string, args ...any) {
	e.logger.Warnf(format, args...)
}

// directoryContext applies Config.Directory.Timeout to ctx.
func (e *Engine) directoryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Directory.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Directory.Timeout)
}

func (e *Engine) findByUsername(ctx context.Context, username string) (internalflows.PrincipalRecord, error) {
	ctx, cancel := e.directoryContext(ctx)
	defer cancel()

	p, err := e.directory.FindByUsername(ctx, username)
	if err != nil {
		return internalflows.PrincipalRecord{}, err
	}
	return principalRecord(p), nil
}

func (e *Engine) findByID(ctx context.Context, id int64) (internalflows.PrincipalRecord, error) {
	ctx, cancel := e.directoryContext(ctx)
	defer cancel()

	p, err := e.directory.FindByID(ctx, id)
	if err != nil {
		return internalflows.PrincipalRecord{}, err
	}
	return principalRecord(p), nil
}

func (e *Engine) updatePasswordHash(ctx context.Context, id int64, hash string) error {
	ctx, cancel := e.directoryContext(ctx)
	defer cancel()

	return e.directory.UpdatePasswordHash(ctx, id, hash)
}

func principalRecord(p StoredPrincipal) internalflows.PrincipalRecord {
	return internalflows.PrincipalRecord{
		ID:           p.ID,
		Username:     p.Username,
		PasswordHash: p.PasswordHash,
		Scopes:       p.Scopes,
		Disabled:     p.Disabled,
	}
}
