package scopeAuth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/scopeAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type mockDirectory struct {
	mu        sync.Mutex
	byID      map[int64]StoredPrincipal
	byName    map[string]int64
	findErr   error
	updateErr error

	findByUsernameCalls int
	findByIDCalls       int
	updateCalls         int
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		byID:   map[int64]StoredPrincipal{},
		byName: map[string]int64{},
	}
}

func (m *mockDirectory) add(p StoredPrincipal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = p
	m.byName[p.Username] = p.ID
}

func (m *mockDirectory) remove(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, m.byName[username])
	delete(m.byName, username)
}

func (m *mockDirectory) get(id int64) StoredPrincipal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *mockDirectory) FindByUsername(ctx context.Context, username string) (StoredPrincipal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByUsernameCalls++

	if m.findErr != nil {
		return StoredPrincipal{}, m.findErr
	}
	id, ok := m.byName[username]
	if !ok {
		return StoredPrincipal{}, ErrPrincipalNotFound
	}
	return m.byID[id], nil
}

func (m *mockDirectory) FindByID(ctx context.Context, id int64) (StoredPrincipal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findByIDCalls++

	if m.findErr != nil {
		return StoredPrincipal{}, m.findErr
	}
	p, ok := m.byID[id]
	if !ok {
		return StoredPrincipal{}, ErrPrincipalNotFound
	}
	return p, nil
}

func (m *mockDirectory) UpdatePasswordHash(ctx context.Context, id int64, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	if m.updateErr != nil {
		return m.updateErr
	}
	p, ok := m.byID[id]
	if !ok {
		return ErrPrincipalNotFound
	}
	p.PasswordHash = newHash
	m.byID[id] = p
	return nil
}

func (m *mockDirectory) updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCalls
}

// testConfig keeps Argon2id cheap so the suite stays fast.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	cfg.Metrics.Enabled = true
	return cfg
}

// weakHasher produces hashes the engine's hasher considers outdated.
func weakHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestEngine builds an engine over dir with alice (scopes me, items) and
// bob (scope me) provisioned, both with the password "correct-password".
func newTestEngine(t *testing.T, dir *mockDirectory, configure func(*Builder)) *Engine {
	t.Helper()

	b := New().WithConfig(testConfig()).WithUserDirectory(dir)
	if configure != nil {
		configure(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	hash, err := engine.HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	dir.add(StoredPrincipal{ID: 1, Username: "alice", PasswordHash: hash, Scopes: []string{"me", "items"}})
	dir.add(StoredPrincipal{ID: 2, Username: "bob", PasswordHash: hash, Scopes: []string{"me"}})

	return engine
}

var errBackendDown = errors.New("connection refused")
