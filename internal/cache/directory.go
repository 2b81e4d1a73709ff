// Package cache holds the process-wide mapping from user id to the cached
// user record.
package cache

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// Directory is the in-memory user cache. It never evicts.
//
// The map is guarded by mu. Each user additionally has its own mutex, handed
// out by Lock, which callers hold across a whole read-check-write sequence so
// that at most one mutating operation per user is in flight.
type Directory struct {
	store  db.Store
	logger *slog.Logger

	mu    sync.RWMutex
	users map[string]*library.User
	locks map[string]*sync.Mutex
}

// NewDirectory creates an empty directory backed by store.
func NewDirectory(store db.Store, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{
		store:  store,
		logger: logger,
		users:  make(map[string]*library.User),
		locks:  make(map[string]*sync.Mutex),
	}
}

// LoadAll reads every persisted user record into the cache. It is the only
// bulk read of the user collection and is meant to run once at startup.
func (d *Directory) LoadAll(ctx context.Context) (int, error) {
	users, err := d.store.ListAllUsers(ctx)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range users {
		d.users[u.ID] = u
	}
	d.logger.Info("user cache loaded", "users", len(users))
	return len(users), nil
}

// GetOrCreate returns the cached record for userID, creating and persisting
// an empty one on first sight. This is the single registration point for new
// users. The bool reports whether the user was created.
//
// A failed persist leaves the cache untouched so the call can be retried.
func (d *Directory) GetOrCreate(ctx context.Context, userID, displayName string) (*library.User, bool, error) {
	if userID == "" {
		return nil, false, errors.NewInvalidRequest("user id must not be empty")
	}

	unlock := d.Lock(userID)
	defer unlock()

	if u, ok := d.Get(userID); ok {
		return u, false, nil
	}

	u := library.NewUser(userID, displayName)
	if err := d.store.PutUser(ctx, u); err != nil {
		d.logger.Error("register user failed", "user", userID, "error", err)
		return nil, false, err
	}

	d.mu.Lock()
	d.users[userID] = u
	d.mu.Unlock()

	d.logger.Info("user registered", "user", userID)
	return u, true, nil
}

// Get returns the live cached record. Callers that mutate it must hold the
// user's lock.
func (d *Directory) Get(userID string) (*library.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[userID]
	return u, ok
}

// Lock acquires the per-user mutex and returns its release function.
func (d *Directory) Lock(userID string) func() {
	d.mu.Lock()
	m, ok := d.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		d.locks[userID] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// LockExisting is Lock for a user already in the cache. It reports false,
// without creating a mutex, when userID is unknown. Records are never
// evicted, so the user is still cached once the lock is held.
func (d *Directory) LockExisting(userID string) (func(), bool) {
	d.mu.Lock()
	if _, ok := d.users[userID]; !ok {
		d.mu.Unlock()
		return nil, false
	}
	m, ok := d.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		d.locks[userID] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock, true
}

// Replace swaps the cached record for u.ID. Callers must hold the user's lock.
func (d *Directory) Replace(u *library.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// Snapshot returns deep copies of every cached record, ordered by id.
// Each record is copied under its user lock, so the caller must not hold one.
func (d *Directory) Snapshot() []*library.User {
	d.mu.RLock()
	ids := make([]string, 0, len(d.users))
	for id := range d.users {
		ids = append(ids, id)
	}
	d.mu.RUnlock()
	sort.Strings(ids)

	out := make([]*library.User, 0, len(ids))
	for _, id := range ids {
		unlock := d.Lock(id)
		if u, ok := d.Get(id); ok {
			out = append(out, u.Clone())
		}
		unlock()
	}
	return out
}

// Len returns the number of cached users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}
