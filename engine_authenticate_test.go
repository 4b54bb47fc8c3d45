package scopeAuth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/scopeAuth/password"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestAuthenticateIssuesTokenForSubject(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)

	grant, err := engine.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: "correct-password",
		Scopes:   []string{"items", "admin", "me"},
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if grant.TokenType != TokenTypeBearer {
		t.Fatalf("expected bearer token type, got %q", grant.TokenType)
	}
	if grant.ExpiresIn != 30*time.Minute {
		t.Fatalf("unexpected ExpiresIn %v", grant.ExpiresIn)
	}
	if strings.Join(grant.Scopes, " ") != "items me" {
		t.Fatalf("expected requested order intersected with entitlement, got %v", grant.Scopes)
	}

	payload, err := engine.codec.Decode(grant.AccessToken)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if payload.Subject != "alice" {
		t.Fatalf("expected subject alice, got %q", payload.Subject)
	}
	if strings.Join(payload.Scopes, " ") != "items me" {
		t.Fatalf("token scopes differ from grant: %v", payload.Scopes)
	}
}

func TestAuthenticateEmptyRequestGrantsNoScopes(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)

	grant, err := engine.Authenticate(context.Background(), Credentials{Username: "alice", Password: "correct-password"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if len(grant.Scopes) != 0 {
		t.Fatalf("expected no scopes, got %v", grant.Scopes)
	}
}

func TestAuthenticateUnknownUserLooksLikeWrongPassword(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)

	_, ghostErr := engine.Authenticate(context.Background(), Credentials{Username: "ghost", Password: "correct-password"})
	_, wrongErr := engine.Authenticate(context.Background(), Credentials{Username: "alice", Password: "wrong-password"})

	if !errors.Is(ghostErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", ghostErr)
	}
	if ghostErr != wrongErr {
		t.Fatalf("unknown user and wrong password must be identical, got %v and %v", ghostErr, wrongErr)
	}
	if KindOf(ghostErr) != KindInvalidCredentials {
		t.Fatalf("unexpected kind %v", KindOf(ghostErr))
	}
}

func TestAuthenticateRehashesWeakHashOnce(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)

	weak, err := weakHasher(t).Hash("weak-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	dir.add(StoredPrincipal{ID: 3, Username: "carol", PasswordHash: weak, Scopes: []string{"me"}})

	if _, err := engine.Authenticate(context.Background(), Credentials{Username: "carol", Password: "nope"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if dir.updates() != 0 {
		t.Fatalf("wrong password must not trigger a rehash, got %d updates", dir.updates())
	}

	if _, err := engine.Authenticate(context.Background(), Credentials{Username: "carol", Password: "weak-password"}); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if dir.updates() != 1 {
		t.Fatalf("expected exactly one update, got %d", dir.updates())
	}

	stored := dir.get(3).PasswordHash
	if stored == weak {
		t.Fatal("stored hash was not replaced")
	}
	needs, err := engine.hasher.NeedsRehash(stored)
	if err != nil || needs {
		t.Fatalf("upgraded hash still needs rehash: needs=%v err=%v", needs, err)
	}
	if ok, _ := engine.hasher.Verify("weak-password", stored); !ok {
		t.Fatal("upgraded hash must verify the same password")
	}

	if _, err := engine.Authenticate(context.Background(), Credentials{Username: "carol", Password: "weak-password"}); err != nil {
		t.Fatalf("second Authenticate failed: %v", err)
	}
	if dir.updates() != 1 {
		t.Fatalf("current hash must not be rehashed again, got %d updates", dir.updates())
	}
	if engine.MetricsSnapshot().Counters[MetricPasswordRehash] != 1 {
		t.Fatal("expected rehash metric")
	}
}

func TestAuthenticateMigratesLegacyBcrypt(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)

	bc, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}
	legacy, err := bc.Hash("legacy-password")
	if err != nil {
		t.Fatalf("bcrypt Hash failed: %v", err)
	}
	dir.add(StoredPrincipal{ID: 4, Username: "dave", PasswordHash: legacy})

	if _, err := engine.Authenticate(context.Background(), Credentials{Username: "dave", Password: "legacy-password"}); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	scheme, err := password.Detect(dir.get(4).PasswordHash)
	if err != nil || scheme != password.SchemeArgon2id {
		t.Fatalf("expected migration to argon2id, got %q err=%v", scheme, err)
	}
}

func TestAuthenticateRejectsBcryptWhenNotAccepted(t *testing.T) {
	dir := newMockDirectory()
	cfg := testConfig()
	cfg.Password.AcceptBcrypt = false
	engine, err := New().WithConfig(cfg).WithUserDirectory(dir).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	bc, _ := password.NewBcrypt(4)
	legacy, _ := bc.Hash("legacy-password")
	dir.add(StoredPrincipal{ID: 4, Username: "dave", PasswordHash: legacy})

	_, err = engine.Authenticate(context.Background(), Credentials{Username: "dave", Password: "legacy-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateRehashFailureIsLoggedNotFatal(t *testing.T) {
	dir := newMockDirectory()
	logger, hook := logtest.NewNullLogger()
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithLogger(logger)
	})

	weak, _ := weakHasher(t).Hash("weak-password")
	dir.add(StoredPrincipal{ID: 3, Username: "carol", PasswordHash: weak})
	dir.updateErr = errBackendDown

	grant, err := engine.Authenticate(context.Background(), Credentials{Username: "carol", Password: "weak-password"})
	if err != nil {
		t.Fatalf("rehash failure must not fail login: %v", err)
	}
	if grant.AccessToken == "" {
		t.Fatal("expected a token")
	}

	last := hook.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %+v", last)
	}
	if strings.Contains(last.Message, "weak-password") || strings.Contains(last.Message, weak) {
		t.Fatal("log entry must not contain secrets")
	}
	if engine.MetricsSnapshot().Counters[MetricPasswordRehashFailure] != 1 {
		t.Fatal("expected rehash failure metric")
	}
}

func TestAuthenticateMalformedStoredHash(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)
	dir.add(StoredPrincipal{ID: 5, Username: "erin", PasswordHash: "$argon2id$v=19$m=oops"})

	_, err := engine.Authenticate(context.Background(), Credentials{Username: "erin", Password: "anything"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if engine.MetricsSnapshot().Counters[MetricMalformedHash] != 1 {
		t.Fatal("expected malformed hash metric")
	}
}

func TestAuthenticateDisabledPrincipal(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)

	p := dir.get(1)
	p.Disabled = true
	dir.add(p)

	_, err := engine.Authenticate(context.Background(), Credentials{Username: "alice", Password: "correct-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateDirectoryUnavailable(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, nil)
	dir.findErr = errBackendDown

	_, err := engine.Authenticate(context.Background(), Credentials{Username: "alice", Password: "correct-password"})
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
	if KindOf(err) != KindDirectoryUnavailable {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}
}

func TestAuthenticateScopeRegistryDropsUnknown(t *testing.T) {
	dir := newMockDirectory()
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithScopes(ScopeDefinition{Name: "me", Description: "Read information about the current user."})
	})

	grant, err := engine.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: "correct-password",
		Scopes:   []string{"me", "items"},
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if len(grant.Scopes) != 1 || grant.Scopes[0] != "me" {
		t.Fatalf("expected only registered scopes, got %v", grant.Scopes)
	}
	if engine.KnownScopes()["me"] == "" {
		t.Fatal("expected scope description")
	}
}

func TestAuthenticateRateLimited(t *testing.T) {
	dir := newMockDirectory()
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.RateLimit.MaxLoginAttempts = 3
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithConfig(cfg).WithRedis(rdb)
	})

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	for i := 0; i < 3; i++ {
		if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	_, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: "correct-password"})
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
	if KindOf(err) != KindRateLimited {
		t.Fatalf("unexpected kind %v", KindOf(err))
	}

	if _, err := engine.Authenticate(ctx, Credentials{Username: "bob", Password: "correct-password"}); err != nil {
		t.Fatalf("other users must not be throttled: %v", err)
	}
}

func TestAuthenticateSuccessResetsFailureCounter(t *testing.T) {
	dir := newMockDirectory()
	_, rdb := newTestRedis(t)
	cfg := testConfig()
	cfg.RateLimit.MaxLoginAttempts = 3
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithConfig(cfg).WithRedis(rdb)
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = engine.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong"})
	}
	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: "correct-password"}); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, _ = engine.Authenticate(ctx, Credentials{Username: "alice", Password: "wrong"})
	}
	if _, err := engine.Authenticate(ctx, Credentials{Username: "alice", Password: "correct-password"}); err != nil {
		t.Fatalf("counter should have been reset by the earlier success: %v", err)
	}
}

func TestAuthenticateLimiterOutageFailsOpen(t *testing.T) {
	dir := newMockDirectory()
	mr, rdb := newTestRedis(t)
	logger, hook := logtest.NewNullLogger()
	engine := newTestEngine(t, dir, func(b *Builder) {
		b.WithRedis(rdb).WithLogger(logger)
	})

	mr.Close()

	if _, err := engine.Authenticate(context.Background(), Credentials{Username: "alice", Password: "correct-password"}); err != nil {
		t.Fatalf("login must proceed when the limiter is down: %v", err)
	}
	if len(hook.Entries) == 0 {
		t.Fatal("expected limiter outage to be logged")
	}
	if engine.MetricsSnapshot().Counters[MetricLimiterUnavailable] == 0 {
		t.Fatal("expected limiter unavailable metric")
	}
}

func TestBuildValidation(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without a user directory")
	}

	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	if _, err := New().WithConfig(cfg).WithUserDirectory(newMockDirectory()).Build(); err == nil {
		t.Fatal("expected error for rate limiting without redis")
	}

	if _, err := New().WithUserDirectory(newMockDirectory()).WithSecret([]byte("short")).Build(); err == nil {
		t.Fatal("expected error for a short secret")
	}

	b := New().WithConfig(testConfig()).WithUserDirectory(newMockDirectory())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestWithConfigCopiesSecret(t *testing.T) {
	cfg := testConfig()
	secret := append([]byte(nil), testSecret...)
	cfg.JWT.Secret = secret

	dir := newMockDirectory()
	engine, err := New().WithConfig(cfg).WithUserDirectory(dir).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	hash, _ := engine.HashPassword("correct-password")
	dir.add(StoredPrincipal{ID: 1, Username: "alice", PasswordHash: hash, Scopes: []string{"me"}})

	grant, err := engine.Authenticate(context.Background(), Credentials{Username: "alice", Password: "correct-password", Scopes: []string{"me"}})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	secret[0] ^= 0xFF
	if _, err := engine.Authorize(context.Background(), grant.AccessToken, "me"); err != nil {
		t.Fatalf("mutating the caller's secret must not affect the engine: %v", err)
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Authenticate(context.Background(), Credentials{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Authorize(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
}
