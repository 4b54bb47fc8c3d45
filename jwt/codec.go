package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretBytes is the shortest HS256 secret NewCodec accepts.
const MinSecretBytes = 32

var (
	// ErrTokenMalformed covers every decode failure other than expiry:
	// bad structure, bad signature, unexpected algorithm, missing claims.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned when the current time is at or past exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidTTL is returned by Encode for lifetimes shorter than one second.
	ErrInvalidTTL = errors.New("token ttl must be at least one second")
	// ErrEmptySubject is returned by Encode for an empty subject.
	ErrEmptySubject = errors.New("token subject must not be empty")
)

// Config defines codec keys and validation policy.
type Config struct {
	// Secret is the shared HS256 key. Must be at least MinSecretBytes long.
	Secret       []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Payload is the decoded, validated content of an access token.
type Payload struct {
	Subject   string
	Scopes    []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

type accessClaims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256-signed access tokens carrying a subject
// and a scope list. A Codec is immutable and safe for concurrent use.
type Codec struct {
	config Config
	parser *jwt.Parser
}

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", MinSecretBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}

	return &Codec{config: cfg, parser: jwt.NewParser(options...)}, nil
}

// Encode signs a token for subject carrying scopes, valid for ttl from now.
//
// Timestamps have second precision, so ttl must be at least one second for
// exp to be strictly after iat.
func (c *Codec) Encode(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrEmptySubject
	}
	if ttl < time.Second {
		return "", ErrInvalidTTL
	}

	now := c.config.Now().UTC()
	if scopes == nil {
		scopes = []string{}
	}

	claims := accessClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
			Issuer:    c.config.Issuer,
		},
	}
	if c.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{c.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature first and the claims second, so a tampered
// token is reported as malformed even if it is also past its expiry.
func (c *Codec) Decode(raw string) (*Payload, error) {
	claims := &accessClaims{}
	token, err := c.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing timestamps", ErrTokenMalformed)
	}
	if !claims.ExpiresAt.Time.After(claims.IssuedAt.Time) {
		return nil, fmt.Errorf("%w: exp not after iat", ErrTokenMalformed)
	}
	if claims.IssuedAt.Time.After(c.config.Now().Add(c.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrTokenMalformed)
	}

	scopes := make([]string, len(claims.Scopes))
	copy(scopes, claims.Scopes)

	return &Payload{
		Subject:   claims.Subject,
		Scopes:    scopes,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		ID:        claims.ID,
	}, nil
}
