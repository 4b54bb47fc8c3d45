package jwt

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCodec(t *testing.T, clock *fakeClock, mutate func(*Config)) *Codec {
	t.Helper()
	cfg := Config{Secret: testSecret, Now: clock.Now}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewCodec(cfg)
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	return c
}

func tamperSignature(token string) string {
	dot := strings.LastIndex(token, ".")
	sig := []byte(token[dot+1:])
	i := len(sig) / 2
	if sig[i] == 'A' {
		sig[i] = 'B'
	} else {
		sig[i] = 'A'
	}
	return token[:dot+1] + string(sig)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock, nil)

	token, err := c.Encode("alice", []string{"me", "items"}, 30*time.Minute)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	clock.now = clock.now.Add(29 * time.Minute)
	payload, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if payload.Subject != "alice" {
		t.Fatalf("expected subject alice, got %q", payload.Subject)
	}
	if !reflect.DeepEqual(payload.Scopes, []string{"me", "items"}) {
		t.Fatalf("unexpected scopes %v", payload.Scopes)
	}
	if !payload.ExpiresAt.After(payload.IssuedAt) {
		t.Fatalf("expected exp after iat, got iat=%v exp=%v", payload.IssuedAt, payload.ExpiresAt)
	}
	if payload.ID == "" {
		t.Fatal("expected jti to be populated")
	}
}

func TestEncodeEmptyScopesDecodeAsEmpty(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock, nil)

	token, err := c.Encode("alice", nil, time.Minute)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	payload, err := c.Decode(token)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if payload.Scopes == nil || len(payload.Scopes) != 0 {
		t.Fatalf("expected empty non-nil scopes, got %#v", payload.Scopes)
	}
}

func TestDecodeExpiredAtBoundary(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: start}
	c := newTestCodec(t, clock, nil)

	token, err := c.Encode("alice", []string{"me"}, time.Minute)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	clock.now = start.Add(time.Minute - time.Second)
	if _, err := c.Decode(token); err != nil {
		t.Fatalf("expected token valid one second before exp: %v", err)
	}

	clock.now = start.Add(time.Minute)
	if _, err := c.Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at exp, got %v", err)
	}

	clock.now = start.Add(time.Hour)
	if _, err := c.Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after exp, got %v", err)
	}
}

func TestDecodeTamperedSignatureIsMalformed(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: start}
	c := newTestCodec(t, clock, nil)

	token, err := c.Encode("alice", []string{"me"}, time.Minute)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	tampered := tamperSignature(token)

	if _, err := c.Decode(tampered); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for tampered token, got %v", err)
	}

	clock.now = start.Add(time.Hour)
	if _, err := c.Decode(tampered); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected tampered expired token to be malformed, got %v", err)
	}
}

func TestDecodeRejectsEveryLastSignatureCharChange(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock, nil)

	for i := 0; i < 10; i++ {
		token, err := c.Encode("alice", []string{"me"}, time.Minute)
		if err != nil {
			t.Fatalf("Encode error: %v", err)
		}
		last := token[len(token)-1]
		for _, ch := range []byte(alphabet) {
			if ch == last {
				continue
			}
			tampered := token[:len(token)-1] + string(ch)
			if _, err := c.Decode(tampered); !errors.Is(err, ErrTokenMalformed) {
				t.Fatalf("last char %q->%q: expected ErrTokenMalformed, got %v", last, ch, err)
			}
		}
	}
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock, nil)
	other := newTestCodec(t, clock, func(cfg *Config) {
		cfg.Secret = []byte("ffffffffffffffffffffffffffffffff")
	})

	token, err := other.Encode("alice", nil, time.Minute)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if _, err := c.Decode(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestDecodeRejectsStructuralGarbage(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock, nil)

	for _, raw := range []string{"", "not.a.jwt", "abc", "eyJhbGciOiJub25lIn0.eyJzdWIiOiJhbGljZSJ9."} {
		if _, err := c.Decode(raw); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("Decode(%q) expected ErrTokenMalformed, got %v", raw, err)
		}
	}
}

func TestDecodeRejectsWrongAlgorithm(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock, nil)

	claims := accessClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "alice",
		IssuedAt:  gjwt.NewNumericDate(clock.now),
		ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := c.Decode(token); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected HS512 token to be malformed, got %v", err)
	}
}

func TestDecodeRequiresClaims(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock, nil)

	sign := func(claims accessClaims) string {
		t.Helper()
		token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		return token
	}

	cases := map[string]accessClaims{
		"missing subject": {RegisteredClaims: gjwt.RegisteredClaims{
			IssuedAt:  gjwt.NewNumericDate(clock.now),
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		}},
		"missing exp": {RegisteredClaims: gjwt.RegisteredClaims{
			Subject:  "alice",
			IssuedAt: gjwt.NewNumericDate(clock.now),
		}},
		"missing iat": {RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		}},
		"exp equals iat": {RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  gjwt.NewNumericDate(clock.now.Add(time.Minute)),
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(time.Minute)),
		}},
		"iat far in future": {RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "alice",
			IssuedAt:  gjwt.NewNumericDate(clock.now.Add(time.Hour)),
			ExpiresAt: gjwt.NewNumericDate(clock.now.Add(2 * time.Hour)),
		}},
	}
	for name, claims := range cases {
		if _, err := c.Decode(sign(claims)); !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("%s: expected ErrTokenMalformed, got %v", name, err)
		}
	}
}

func TestDecodeIssuerAudienceAndLeeway(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{now: start}
	c := newTestCodec(t, clock, func(cfg *Config) {
		cfg.Issuer = "scopeauth"
		cfg.Audience = "api"
		cfg.Leeway = 30 * time.Second
	})

	token, err := c.Encode("alice", nil, time.Minute)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	clock.now = start.Add(time.Minute + 15*time.Second)
	if _, err := c.Decode(token); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}
	clock.now = start.Add(2 * time.Minute)
	if _, err := c.Decode(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expiry past leeway, got %v", err)
	}

	clock.now = start
	other := newTestCodec(t, clock, func(cfg *Config) {
		cfg.Issuer = "other"
		cfg.Audience = "api"
	})
	foreign, err := other.Encode("alice", nil, time.Minute)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if _, err := c.Decode(foreign); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected wrong issuer to be malformed, got %v", err)
	}
}

func TestEncodeValidation(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, clock, nil)

	if _, err := c.Encode("", nil, time.Minute); !errors.Is(err, ErrEmptySubject) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}
	if _, err := c.Encode("alice", nil, 500*time.Millisecond); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
	if _, err := c.Encode("alice", nil, 0); !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL for zero ttl, got %v", err)
	}
}

func TestNewCodecValidation(t *testing.T) {
	if _, err := NewCodec(Config{Secret: []byte("short")}); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if _, err := NewCodec(Config{Secret: testSecret, Leeway: time.Hour}); err == nil {
		t.Fatal("expected excessive leeway to be rejected")
	}
	if _, err := NewCodec(Config{Secret: testSecret, MaxFutureIAT: -time.Second}); err == nil {
		t.Fatal("expected negative MaxFutureIAT to be rejected")
	}
}

func TestCodecCopiesSecret(t *testing.T) {
	secret := append([]byte(nil), testSecret...)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c, err := NewCodec(Config{Secret: secret, Now: clock.Now})
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	token, err := c.Encode("alice", nil, time.Minute)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	secret[0] ^= 0xFF
	if _, err := c.Decode(token); err != nil {
		t.Fatalf("mutating caller secret must not affect codec: %v", err)
	}
}
