package scopeAuth

import (
	"time"

	"github.com/MrEthical07/scopeAuth/internal/security"
)

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by [Engine.SecurityReport].
type SecurityReport struct {
	SigningAlgorithm    string
	AccessTTL           time.Duration
	IssuerPinned        bool
	AudiencePinned      bool
	Argon2              PasswordConfigReport
	LegacyBcrypt        bool
	UpgradeOnLogin      bool
	RateLimitingActive  bool
	IPThrottleActive    bool
	ScopeRegistryActive bool
	DirectoryTimeout    time.Duration
	AuditActive         bool
	// Warnings lists settings an operator should review. Empty is good.
	Warnings []string
}

// PasswordConfigReport mirrors the Argon2id parameters for new hashes.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport summarises the built configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	r := security.BuildReport(security.ReportInput{
		SigningAlgorithm: "HS256",
		AccessTTL:        cfg.JWT.AccessTTL,
		Issuer:           cfg.JWT.Issuer,
		Audience:         cfg.JWT.Audience,
		Password: security.PasswordReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		AcceptBcrypt:          cfg.Password.AcceptBcrypt,
		UpgradeOnLogin:        cfg.Password.UpgradeOnLogin,
		RateLimitEnabled:      e.rateLimiter != nil,
		EnableIPThrottle:      cfg.RateLimit.EnableIPThrottle,
		MaxLoginAttempts:      cfg.RateLimit.MaxLoginAttempts,
		LoginCooldownDuration: cfg.RateLimit.LoginCooldownDuration,
		KnownScopes:           len(cfg.Scopes.Known),
		DirectoryTimeout:      cfg.Directory.Timeout,
		AuditEnabled:          cfg.Audit.Enabled,
	})

	return SecurityReport{
		SigningAlgorithm: r.SigningAlgorithm,
		AccessTTL:        r.AccessTTL,
		IssuerPinned:     r.IssuerPinned,
		AudiencePinned:   r.AudiencePinned,
		Argon2: PasswordConfigReport{
			Memory:      r.Argon2.Memory,
			Time:        r.Argon2.Time,
			Parallelism: r.Argon2.Parallelism,
			SaltLength:  r.Argon2.SaltLength,
			KeyLength:   r.Argon2.KeyLength,
		},
		LegacyBcrypt:        r.LegacyBcrypt,
		UpgradeOnLogin:      r.UpgradeOnLogin,
		RateLimitingActive:  r.RateLimitingActive,
		IPThrottleActive:    r.IPThrottleActive,
		ScopeRegistryActive: r.ScopeRegistryActive,
		DirectoryTimeout:    r.DirectoryTimeout,
		AuditActive:         r.AuditActive,
		Warnings:            r.Warnings,
	}
}
