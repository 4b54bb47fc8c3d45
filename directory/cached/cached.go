// Package cached puts a size- and TTL-bounded LRU in front of a
// [scopeAuth.UserDirectory].
//
// Only successful lookups are cached. Records live in one LRU keyed by ID;
// usernames resolve through an index, so dropping the ID entry hides the
// record from both lookup paths. UpdatePasswordHash invalidates before and
// after the downstream write, and lookups that started before an
// invalidation do not repopulate the cache. A rehash or password change is
// therefore visible to the next lookup on this process. Changes made
// elsewhere (another replica, an admin tool) become visible after at most
// TTL, or immediately via [Directory.Invalidate].
package cached

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	scopeAuth "github.com/MrEthical07/scopeAuth"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Config bounds the cache.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

// DefaultConfig caches up to 10k principals for 30 seconds.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 10_000,
		TTL:        30 * time.Second,
	}
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// Directory is a caching [scopeAuth.UserDirectory].
type Directory struct {
	next    scopeAuth.UserDirectory
	entries *lru.LRU[int64, scopeAuth.StoredPrincipal]

	mu     sync.Mutex
	byName map[string]int64

	// generation advances on every invalidation. A lookup only stores its
	// result if no invalidation happened while it was in flight.
	generation atomic.Uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New wraps next. Zero Config fields take their defaults.
func New(next scopeAuth.UserDirectory, cfg Config) *Directory {
	def := DefaultConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}

	d := &Directory{
		next:   next,
		byName: make(map[string]int64),
	}
	// onEvict runs under the LRU's lock; it only touches d.mu, and d.mu is
	// never held while calling into the LRU.
	d.entries = lru.NewLRU[int64, scopeAuth.StoredPrincipal](cfg.MaxEntries, d.onEvict, cfg.TTL)
	return d
}

// FindByUsername implements [scopeAuth.UserDirectory].
func (d *Directory) FindByUsername(ctx context.Context, username string) (scopeAuth.StoredPrincipal, error) {
	d.mu.Lock()
	id, indexed := d.byName[username]
	d.mu.Unlock()

	if indexed {
		if p, ok := d.entries.Get(id); ok && p.Username == username {
			d.hits.Add(1)
			return clonePrincipal(p), nil
		}
	}
	d.misses.Add(1)

	gen := d.generation.Load()
	p, err := d.next.FindByUsername(ctx, username)
	if err != nil {
		return scopeAuth.StoredPrincipal{}, err
	}
	d.store(p, gen)
	return clonePrincipal(p), nil
}

// FindByID implements [scopeAuth.UserDirectory].
func (d *Directory) FindByID(ctx context.Context, id int64) (scopeAuth.StoredPrincipal, error) {
	if p, ok := d.entries.Get(id); ok {
		d.hits.Add(1)
		return clonePrincipal(p), nil
	}
	d.misses.Add(1)

	gen := d.generation.Load()
	p, err := d.next.FindByID(ctx, id)
	if err != nil {
		return scopeAuth.StoredPrincipal{}, err
	}
	d.store(p, gen)
	return clonePrincipal(p), nil
}

// UpdatePasswordHash implements [scopeAuth.UserDirectory]. Cached entries
// for id are dropped whether or not the update succeeds.
func (d *Directory) UpdatePasswordHash(ctx context.Context, id int64, newHash string) error {
	d.invalidateID(id)
	err := d.next.UpdatePasswordHash(ctx, id, newHash)
	d.invalidateID(id)
	return err
}

// Invalidate drops any cached entry for username.
func (d *Directory) Invalidate(username string) {
	d.generation.Add(1)

	d.mu.Lock()
	id, ok := d.byName[username]
	delete(d.byName, username)
	d.mu.Unlock()

	if ok {
		d.entries.Remove(id)
	}
}

// Purge empties the cache.
func (d *Directory) Purge() {
	d.generation.Add(1)
	d.entries.Purge()

	d.mu.Lock()
	d.byName = make(map[string]int64)
	d.mu.Unlock()
}

// Stats returns the cache counters.
func (d *Directory) Stats() Stats {
	return Stats{
		Hits:    d.hits.Load(),
		Misses:  d.misses.Load(),
		Entries: d.entries.Len(),
	}
}

func (d *Directory) store(p scopeAuth.StoredPrincipal, gen uint64) {
	if d.generation.Load() != gen {
		return
	}
	p = clonePrincipal(p)
	d.entries.Add(p.ID, p)

	d.mu.Lock()
	d.byName[p.Username] = p.ID
	d.mu.Unlock()

	// an invalidation may have slipped in between the check and the Add
	if d.generation.Load() != gen {
		d.entries.Remove(p.ID)
	}
}

func (d *Directory) invalidateID(id int64) {
	d.generation.Add(1)
	d.entries.Remove(id)
}

func (d *Directory) onEvict(id int64, p scopeAuth.StoredPrincipal) {
	d.mu.Lock()
	if cur, ok := d.byName[p.Username]; ok && cur == id {
		delete(d.byName, p.Username)
	}
	d.mu.Unlock()
}

func clonePrincipal(p scopeAuth.StoredPrincipal) scopeAuth.StoredPrincipal {
	if p.Scopes != nil {
		p.Scopes = append([]string(nil), p.Scopes...)
	}
	return p
}

var _ scopeAuth.UserDirectory = (*Directory)(nil)
