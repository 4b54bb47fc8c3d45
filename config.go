package scopeAuth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/scopeAuth/jwt"
	"github.com/MrEthical07/scopeAuth/password"
	"github.com/MrEthical07/scopeAuth/scope"
)

// Config is the complete engine configuration. It is copied by
// [Builder.WithConfig] and treated as immutable once the engine is built.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Directory DirectoryConfig
	Scopes    ScopesConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token issuance and validation.
type JWTConfig struct {
	// Secret is the HS256 signing key. At least 32 bytes.
	Secret    []byte
	AccessTTL time.Duration
	Issuer    string
	Audience  string
	// Leeway tolerates clock drift between issuer and validator.
	Leeway time.Duration
	// MaxFutureIAT rejects tokens issued further than this in the future.
	MaxFutureIAT time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id parameters for new hashes and the
// legacy-scheme and policy knobs around them.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
	// MinLength applies to ChangePassword only. Existing passwords are never
	// rejected at login for being short.
	MinLength int

	UpgradeOnLogin bool
	// AcceptBcrypt enables verification of legacy bcrypt hashes. They are
	// replaced with Argon2id on the next successful login.
	AcceptBcrypt bool
	BcryptCost   int
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls failed-login throttling. It requires a redis
// client passed to [Builder.WithRedis].
type RateLimitConfig struct {
	Enabled               bool
	RedisPrefix           string
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// DirectoryConfig bounds calls into the [UserDirectory].
type DirectoryConfig struct {
	// Timeout caps every directory call. Zero relies on the caller's context.
	Timeout time.Duration
}

// ScopeDefinition names one grantable scope.
type ScopeDefinition struct {
	Name        string
	Description string
}

// ScopesConfig lists the known scopes. When empty, any well-formed scope
// name the principal is entitled to may be granted.
type ScopesConfig struct {
	Known []ScopeDefinition
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.Secret is left empty
// and must be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:    30 * time.Minute,
			Leeway:       0,
			MaxFutureIAT: 10 * time.Minute,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
			MinLength:        8,
			UpgradeOnLogin:   true,
			AcceptBcrypt:     true,
			BcryptCost:       12,
		},
		RateLimit: RateLimitConfig{
			Enabled:               false,
			RedisPrefix:           "sa",
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Directory: DirectoryConfig{
			Timeout: 5 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	if cfg.Scopes.Known != nil {
		out.Scopes.Known = append([]ScopeDefinition(nil), cfg.Scopes.Known...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem, if any.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) < jwt.MinSecretBytes {
		return fmt.Errorf("JWT Secret must be at least %d bytes", jwt.MinSecretBytes)
	}
	if c.JWT.AccessTTL < time.Second {
		return errors.New("JWT AccessTTL must be >= 1s")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.MaxFutureIAT < 0 || c.JWT.MaxFutureIAT > 24*time.Hour {
		return errors.New("JWT MaxFutureIAT must be between 0 and 24h")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}
	if c.Password.MinLength < 0 {
		return errors.New("Password MinLength must be >= 0")
	}
	if c.Password.MaxPasswordBytes > 0 && c.Password.MinLength > c.Password.MaxPasswordBytes {
		return errors.New("Password MinLength must not exceed MaxPasswordBytes")
	}

	// Rate limiting
	if c.RateLimit.Enabled {
		if strings.TrimSpace(c.RateLimit.RedisPrefix) == "" {
			return errors.New("RateLimit RedisPrefix must not be empty")
		}
		if c.RateLimit.MaxLoginAttempts <= 0 {
			return errors.New("RateLimit MaxLoginAttempts must be > 0")
		}
		if c.RateLimit.LoginCooldownDuration <= 0 {
			return errors.New("RateLimit LoginCooldownDuration must be > 0")
		}
	}

	// Directory
	if c.Directory.Timeout < 0 {
		return errors.New("Directory Timeout must be >= 0")
	}

	// Scopes
	seen := make(map[string]struct{}, len(c.Scopes.Known))
	for _, def := range c.Scopes.Known {
		if err := scope.ValidateName(def.Name); err != nil {
			return fmt.Errorf("Scopes entry %q: %v", def.Name, err)
		}
		if _, dup := seen[def.Name]; dup {
			return fmt.Errorf("Scopes entry %q is duplicated", def.Name)
		}
		seen[def.Name] = struct{}{}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
