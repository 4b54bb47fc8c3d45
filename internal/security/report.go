package security

import "time"

// PasswordReport summarises the Argon2id parameters used for new hashes.
type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report is the derived security posture of an engine configuration.
type Report struct {
	SigningAlgorithm    string
	AccessTTL           time.Duration
	IssuerPinned        bool
	AudiencePinned      bool
	Argon2              PasswordReport
	LegacyBcrypt        bool
	UpgradeOnLogin      bool
	RateLimitingActive  bool
	IPThrottleActive    bool
	ScopeRegistryActive bool
	DirectoryTimeout    time.Duration
	AuditActive         bool
	Warnings            []string
}

// ReportInput is the raw configuration BuildReport derives from.
type ReportInput struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	Issuer                string
	Audience              string
	Password              PasswordReport
	AcceptBcrypt          bool
	UpgradeOnLogin        bool
	RateLimitEnabled      bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	KnownScopes           int
	DirectoryTimeout      time.Duration
	AuditEnabled          bool
}

const (
	longAccessTTL      = 24 * time.Hour
	recommendedMemory  = 64 * 1024
	recommendedMinTime = 2
)

// BuildReport derives the posture and a list of findings worth logging.
func BuildReport(input ReportInput) Report {
	rateLimiting := input.RateLimitEnabled &&
		input.MaxLoginAttempts > 0 &&
		input.LoginCooldownDuration > 0

	r := Report{
		SigningAlgorithm:    input.SigningAlgorithm,
		AccessTTL:           input.AccessTTL,
		IssuerPinned:        input.Issuer != "",
		AudiencePinned:      input.Audience != "",
		Argon2:              input.Password,
		LegacyBcrypt:        input.AcceptBcrypt,
		UpgradeOnLogin:      input.UpgradeOnLogin,
		RateLimitingActive:  rateLimiting,
		IPThrottleActive:    rateLimiting && input.EnableIPThrottle,
		ScopeRegistryActive: input.KnownScopes > 0,
		DirectoryTimeout:    input.DirectoryTimeout,
		AuditActive:         input.AuditEnabled,
	}

	if input.AccessTTL > longAccessTTL {
		r.Warnings = append(r.Warnings, "access tokens live longer than 24h and cannot be revoked")
	}
	if !rateLimiting {
		r.Warnings = append(r.Warnings, "login rate limiting is off")
	}
	if input.AcceptBcrypt && !input.UpgradeOnLogin {
		r.Warnings = append(r.Warnings, "legacy bcrypt hashes are accepted but never upgraded")
	}
	if input.Password.Memory < recommendedMemory || input.Password.Time < recommendedMinTime {
		r.Warnings = append(r.Warnings, "argon2id parameters are below 64MiB/t=2")
	}
	if input.KnownScopes == 0 {
		r.Warnings = append(r.Warnings, "no scope registry; any well-formed entitled scope can be granted")
	}
	if input.DirectoryTimeout == 0 {
		r.Warnings = append(r.Warnings, "directory calls have no timeout")
	}
	return r
}
