// Package settings loads process configuration for the scopeauthd binary.
//
// Values come from built-in defaults, then an optional YAML file, then
// SCOPEAUTH_* environment variables. The result converts into a
// [scopeAuth.Config] for the engine.
package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/scopeAuth"
	"github.com/MrEthical07/scopeAuth/jwt"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Settings is the root of the daemon configuration.
type Settings struct {
	Server   ServerSettings   `yaml:"server"`
	Auth     AuthSettings     `yaml:"auth"`
	Password PasswordSettings `yaml:"password"`
	Database DatabaseSettings `yaml:"database"`
	Redis    RedisSettings    `yaml:"redis"`
	Cache    CacheSettings    `yaml:"cache"`
	Scopes   []ScopeSetting   `yaml:"scopes"`
	Log      LogSettings      `yaml:"log"`
	Metrics  MetricsSettings  `yaml:"metrics"`
	Audit    AuditSettings    `yaml:"audit"`
	Seed     []SeedPrincipal  `yaml:"seed"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TrustForwarded takes the client IP from X-Forwarded-For. Enable only
	// behind a proxy that overwrites the header.
	TrustForwarded bool `yaml:"trust_forwarded"`
}

// AuthSettings configures token issuance.
type AuthSettings struct {
	SecretKey string        `yaml:"secret_key"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`
	Audience  string        `yaml:"audience"`
	Leeway    time.Duration `yaml:"leeway"`
}

// PasswordSettings configures the Argon2id parameters and legacy handling.
type PasswordSettings struct {
	MemoryKB       uint32 `yaml:"memory_kb"`
	Iterations     uint32 `yaml:"iterations"`
	Parallelism    uint8  `yaml:"parallelism"`
	MinLength      int    `yaml:"min_length"`
	AcceptBcrypt   bool   `yaml:"accept_bcrypt"`
	UpgradeOnLogin bool   `yaml:"upgrade_on_login"`
}

// DatabaseSettings selects the principal store.
type DatabaseSettings struct {
	Driver  string        `yaml:"driver"`
	DSN     string        `yaml:"dsn"`
	Timeout time.Duration `yaml:"timeout"`
	Migrate bool          `yaml:"migrate"`
}

// RedisSettings enables the login limiter when Addr is set.
type RedisSettings struct {
	Addr             string        `yaml:"addr"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	Prefix           string        `yaml:"prefix"`
	MaxLoginAttempts int           `yaml:"max_login_attempts"`
	Cooldown         time.Duration `yaml:"cooldown"`
	ThrottleIP       bool          `yaml:"throttle_ip"`
}

// CacheSettings wraps the store in a read-through principal cache.
type CacheSettings struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// ScopeSetting declares one grantable scope.
type ScopeSetting struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsSettings configures in-process metrics and the scrape endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Latency bool   `yaml:"latency"`
	Path    string `yaml:"path"`
}

// AuditSettings routes audit events to the process logger.
type AuditSettings struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
}

// SeedPrincipal is created at startup when its username does not exist yet.
// PasswordHash must already be hasher output.
type SeedPrincipal struct {
	Username     string   `yaml:"username"`
	PasswordHash string   `yaml:"password_hash"`
	Email        string   `yaml:"email"`
	FullName     string   `yaml:"full_name"`
	Scopes       []string `yaml:"scopes"`
}

// Load reads defaults, the YAML file at path (skipped when path is empty)
// and environment overrides, then validates the result.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing settings file: %w", err)
		}
	}

	if err := applyEnvOverrides(s); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}
	return s, nil
}

// Default returns settings for a local SQLite deployment. SecretKey is empty.
func Default() *Settings {
	engine := scopeAuth.DefaultConfig()
	return &Settings{
		Server: ServerSettings{
			ListenAddr:      ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Auth: AuthSettings{
			TokenTTL: engine.JWT.AccessTTL,
		},
		Password: PasswordSettings{
			MemoryKB:       engine.Password.Memory,
			Iterations:     engine.Password.Time,
			Parallelism:    engine.Password.Parallelism,
			MinLength:      engine.Password.MinLength,
			AcceptBcrypt:   engine.Password.AcceptBcrypt,
			UpgradeOnLogin: engine.Password.UpgradeOnLogin,
		},
		Database: DatabaseSettings{
			Driver:  "sqlite3",
			DSN:     "file:scopeauth.db?_foreign_keys=on",
			Timeout: engine.Directory.Timeout,
			Migrate: true,
		},
		Redis: RedisSettings{
			Prefix:           engine.RateLimit.RedisPrefix,
			MaxLoginAttempts: engine.RateLimit.MaxLoginAttempts,
			Cooldown:         engine.RateLimit.LoginCooldownDuration,
		},
		Cache: CacheSettings{
			MaxEntries: 10000,
			TTL:        30 * time.Second,
		},
		Scopes: []ScopeSetting{
			{Name: "me", Description: "Read information about the current user."},
			{Name: "items", Description: "Read items."},
		},
		Log: LogSettings{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsSettings{
			Enabled: true,
			Path:    "/metrics",
		},
		Audit: AuditSettings{
			BufferSize: engine.Audit.BufferSize,
		},
	}
}

// applyEnvOverrides follows the SCOPEAUTH_SECTION_KEY pattern.
func applyEnvOverrides(s *Settings) error {
	if v := os.Getenv("SCOPEAUTH_SECRET_KEY"); v != "" {
		s.Auth.SecretKey = v
	}
	if v := os.Getenv("SCOPEAUTH_TOKEN_TTL"); v != "" {
		ttl, err := parseTTL(v)
		if err != nil {
			return fmt.Errorf("SCOPEAUTH_TOKEN_TTL: %w", err)
		}
		s.Auth.TokenTTL = ttl
	}

	if v := os.Getenv("SCOPEAUTH_DATABASE_DRIVER"); v != "" {
		s.Database.Driver = v
	}
	if v := os.Getenv("SCOPEAUTH_DATABASE_DSN"); v != "" {
		s.Database.DSN = v
	}

	if v := os.Getenv("SCOPEAUTH_REDIS_ADDR"); v != "" {
		s.Redis.Addr = v
	}

	if v := os.Getenv("SCOPEAUTH_LISTEN_ADDR"); v != "" {
		s.Server.ListenAddr = v
	}
	if v := os.Getenv("SCOPEAUTH_LOG_LEVEL"); v != "" {
		s.Log.Level = v
	}
	return nil
}

// parseTTL accepts a Go duration or a bare number of minutes.
func parseTTL(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if minutes, err := strconv.Atoi(v); err == nil {
		return time.Duration(minutes) * time.Minute, nil
	}
	return time.ParseDuration(v)
}

// Validate collects every problem into one error.
func (s *Settings) Validate() error {
	var errs []string

	if s.Server.ListenAddr == "" {
		errs = append(errs, "server.listen_addr is required")
	}
	if s.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be > 0")
	}

	if s.Auth.SecretKey == "" {
		errs = append(errs, "auth.secret_key is required (set SCOPEAUTH_SECRET_KEY)")
	} else if len(s.Auth.SecretKey) < jwt.MinSecretBytes {
		errs = append(errs, fmt.Sprintf("auth.secret_key must be at least %d bytes", jwt.MinSecretBytes))
	}
	if s.Auth.TokenTTL < time.Second {
		errs = append(errs, "auth.token_ttl must be >= 1s")
	}

	switch strings.ToLower(s.Database.Driver) {
	case "postgres", "postgresql", "pgx", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", s.Database.Driver))
	}
	if s.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}

	if s.Redis.Addr != "" && s.Redis.MaxLoginAttempts <= 0 {
		errs = append(errs, "redis.max_login_attempts must be > 0")
	}
	if s.Cache.Enabled && (s.Cache.MaxEntries <= 0 || s.Cache.TTL <= 0) {
		errs = append(errs, "cache.max_entries and cache.ttl must be > 0 when enabled")
	}

	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid", s.Log.Level))
	}
	if s.Log.Format != "json" && s.Log.Format != "text" {
		errs = append(errs, "log.format must be json or text")
	}

	if s.Metrics.Enabled && !strings.HasPrefix(s.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	for i, p := range s.Seed {
		if p.Username == "" || p.PasswordHash == "" {
			errs = append(errs, fmt.Sprintf("seed[%d] needs username and password_hash", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("settings errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// EngineConfig converts the settings into an engine configuration.
// Rate limiting is switched on by Builder.WithRedis, not here.
func (s *Settings) EngineConfig() scopeAuth.Config {
	cfg := scopeAuth.DefaultConfig()

	cfg.JWT.Secret = []byte(s.Auth.SecretKey)
	cfg.JWT.AccessTTL = s.Auth.TokenTTL
	cfg.JWT.Issuer = s.Auth.Issuer
	cfg.JWT.Audience = s.Auth.Audience
	cfg.JWT.Leeway = s.Auth.Leeway

	if s.Password.MemoryKB > 0 {
		cfg.Password.Memory = s.Password.MemoryKB
	}
	if s.Password.Iterations > 0 {
		cfg.Password.Time = s.Password.Iterations
	}
	if s.Password.Parallelism > 0 {
		cfg.Password.Parallelism = s.Password.Parallelism
	}
	cfg.Password.MinLength = s.Password.MinLength
	cfg.Password.AcceptBcrypt = s.Password.AcceptBcrypt
	cfg.Password.UpgradeOnLogin = s.Password.UpgradeOnLogin

	if s.Redis.Prefix != "" {
		cfg.RateLimit.RedisPrefix = s.Redis.Prefix
	}
	cfg.RateLimit.MaxLoginAttempts = s.Redis.MaxLoginAttempts
	cfg.RateLimit.LoginCooldownDuration = s.Redis.Cooldown
	cfg.RateLimit.EnableIPThrottle = s.Redis.ThrottleIP

	cfg.Directory.Timeout = s.Database.Timeout

	cfg.Scopes.Known = make([]scopeAuth.ScopeDefinition, 0, len(s.Scopes))
	for _, sc := range s.Scopes {
		cfg.Scopes.Known = append(cfg.Scopes.Known, scopeAuth.ScopeDefinition{
			Name:        sc.Name,
			Description: sc.Description,
		})
	}

	cfg.Audit.Enabled = s.Audit.Enabled
	if s.Audit.BufferSize > 0 {
		cfg.Audit.BufferSize = s.Audit.BufferSize
	}

	cfg.Metrics.Enabled = s.Metrics.Enabled
	cfg.Metrics.EnableLatencyHistograms = s.Metrics.Enabled && s.Metrics.Latency
	return cfg
}

// NewLogger builds the process logger.
func (l LogSettings) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(level)
	if l.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	return logger, nil
}

// Principal converts a seed entry into a stored principal.
func (p SeedPrincipal) Principal() scopeAuth.StoredPrincipal {
	return scopeAuth.StoredPrincipal{
		Username:     p.Username,
		PasswordHash: p.PasswordHash,
		Email:        p.Email,
		FullName:     p.FullName,
		Scopes:       append([]string(nil), p.Scopes...),
	}
}
