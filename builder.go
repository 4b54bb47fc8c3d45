package scopeAuth

import (
	"errors"
	"fmt"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/scopeAuth/internal/audit"
	"github.com/MrEthical07/scopeAuth/internal/rate"
	"github.com/MrEthical07/scopeAuth/jwt"
	"github.com/MrEthical07/scopeAuth/password"
	"github.com/MrEthical07/scopeAuth/scope"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// dummyPassword is hashed once per engine. Logins for unknown usernames
// verify against it so they cost the same as a wrong password.
const dummyPassword = "scopeauth-timing-equalizer"

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory UserDirectory
	auditSink AuditSink
	logger    logrus.FieldLogger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. cfg is deep-copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the HS256 signing key.
func (b *Builder) WithSecret(secret []byte) *Builder {
	b.config.JWT.Secret = cloneBytes(secret)
	return b
}

// WithUserDirectory sets the principal store. Required.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithRedis sets the client used by the login rate limiter and enables it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	if client != nil {
		b.config.RateLimit.Enabled = true
	}
	return b
}

// WithScopes appends known scopes to the configuration.
func (b *Builder) WithScopes(defs ...ScopeDefinition) *Builder {
	b.config.Scopes.Known = append(b.config.Scopes.Known, defs...)
	return b
}

// WithAuditSink sets the audit destination and enables the dispatcher.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

// WithLogger sets the logger used for swallowed side-channel failures.
// The default discards everything.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for token timestamps and audit
// events. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms. It implies metrics.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	if enabled {
		b.config.Metrics.Enabled = true
	}
	return b
}

// Build validates the configuration and returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if cfg.RateLimit.Enabled && b.redis == nil {
		return nil, errors.New("RateLimit requires redis client")
	}

	logger := b.logger
	if logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		logger = silent
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- SCOPE REGISTRY --------
	var registry *scope.Registry
	if len(cfg.Scopes.Known) > 0 {
		registry = scope.NewRegistry()
		for _, def := range cfg.Scopes.Known {
			if err := registry.Register(def.Name, def.Description); err != nil {
				return nil, fmt.Errorf("register scope %q: %w", def.Name, err)
			}
		}
		registry.Freeze()
	}

	// -------- PASSWORD HASHER --------
	primary, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	var legacy []password.SchemeHasher
	if cfg.Password.AcceptBcrypt {
		bc, err := password.NewBcrypt(cfg.Password.BcryptCost)
		if err != nil {
			return nil, err
		}
		legacy = append(legacy, bc)
	}
	hasher, err := password.NewUpgrader(primary, legacy...)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewCodec(jwt.Config{
		Secret:       cloneBytes(cfg.JWT.Secret),
		Issuer:       cfg.JWT.Issuer,
		Audience:     cfg.JWT.Audience,
		Leeway:       cfg.JWT.Leeway,
		MaxFutureIAT: cfg.JWT.MaxFutureIAT,
		Now:          clock,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		codec:     codec,
		hasher:    hasher,
		dummyHash: dummyHash,
		directory: b.directory,
		registry:  registry,
		logger:    logger,
		clock:     clock,
		metrics:   NewMetrics(cfg.Metrics),
	}

	if cfg.RateLimit.Enabled {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.RateLimit.RedisPrefix,
			EnableIPThrottle:      cfg.RateLimit.EnableIPThrottle,
			MaxLoginAttempts:      cfg.RateLimit.MaxLoginAttempts,
			LoginCooldownDuration: cfg.RateLimit.LoginCooldownDuration,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(ev AuditEvent) {
			logger.WithField("event", ev.EventType).Debug("scopeAuth: audit event dropped")
		},
	}, b.auditSink)

	engine.loginDeps = engine.loginFlowDeps()
	engine.authorizeDeps = engine.authorizeFlowDeps()
	engine.passwordChangeDeps = engine.passwordChangeFlowDeps()

	b.built = true

	return engine, nil
}
