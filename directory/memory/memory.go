// Package memory is an in-process [scopeAuth.UserDirectory] for tests,
// examples and load tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	scopeAuth "github.com/MrEthical07/scopeAuth"
)

// ErrDuplicateUsername is returned by Add for a username already present.
var ErrDuplicateUsername = errors.New("username already exists")

// Directory holds principals in mutex-guarded maps. Returned records are
// copies; callers cannot mutate stored state through them.
type Directory struct {
	mu         sync.RWMutex
	byID       map[int64]*scopeAuth.StoredPrincipal
	byUsername map[string]int64
	nextID     int64
	now        func() time.Time
}

// New returns an empty directory.
func New() *Directory {
	return &Directory{
		byID:       make(map[int64]*scopeAuth.StoredPrincipal),
		byUsername: make(map[string]int64),
		now:        time.Now,
	}
}

// Add stores p and returns its assigned ID. A zero p.ID is replaced with the
// next free ID and a zero CreatedAt with the current time.
func (d *Directory) Add(p scopeAuth.StoredPrincipal) (int64, error) {
	if p.Username == "" {
		return 0, errors.New("username must not be empty")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byUsername[p.Username]; exists {
		return 0, ErrDuplicateUsername
	}
	if p.ID == 0 {
		d.nextID++
		p.ID = d.nextID
	} else if _, exists := d.byID[p.ID]; exists {
		return 0, errors.New("id already exists")
	} else if p.ID > d.nextID {
		d.nextID = p.ID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = d.now().UTC()
	}

	rec := clonePrincipal(p)
	d.byID[p.ID] = &rec
	d.byUsername[p.Username] = p.ID
	return p.ID, nil
}

// Remove deletes the principal with the given username.
func (d *Directory) Remove(username string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.byUsername[username]
	if !ok {
		return false
	}
	delete(d.byUsername, username)
	delete(d.byID, id)
	return true
}

// SetDisabled flips the disabled flag of principal id.
func (d *Directory) SetDisabled(id int64, disabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.byID[id]
	if !ok {
		return scopeAuth.ErrPrincipalNotFound
	}
	rec.Disabled = disabled
	return nil
}

// Len returns the number of stored principals.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// FindByUsername implements [scopeAuth.UserDirectory].
func (d *Directory) FindByUsername(ctx context.Context, username string) (scopeAuth.StoredPrincipal, error) {
	if err := ctxErr(ctx); err != nil {
		return scopeAuth.StoredPrincipal{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byUsername[username]
	if !ok {
		return scopeAuth.StoredPrincipal{}, scopeAuth.ErrPrincipalNotFound
	}
	return clonePrincipal(*d.byID[id]), nil
}

// FindByID implements [scopeAuth.UserDirectory].
func (d *Directory) FindByID(ctx context.Context, id int64) (scopeAuth.StoredPrincipal, error) {
	if err := ctxErr(ctx); err != nil {
		return scopeAuth.StoredPrincipal{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.byID[id]
	if !ok {
		return scopeAuth.StoredPrincipal{}, scopeAuth.ErrPrincipalNotFound
	}
	return clonePrincipal(*rec), nil
}

// UpdatePasswordHash implements [scopeAuth.UserDirectory].
func (d *Directory) UpdatePasswordHash(ctx context.Context, id int64, newHash string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.byID[id]
	if !ok {
		return scopeAuth.ErrPrincipalNotFound
	}
	rec.PasswordHash = newHash
	return nil
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errors.Join(scopeAuth.ErrDirectoryUnavailable, err)
	}
	return nil
}

func clonePrincipal(p scopeAuth.StoredPrincipal) scopeAuth.StoredPrincipal {
	if p.Scopes != nil {
		p.Scopes = append([]string(nil), p.Scopes...)
	}
	return p
}

var _ scopeAuth.UserDirectory = (*Directory)(nil)
