package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
	"github.com/photokeep/photokeep/internal/logger"
)

func openStore(t *testing.T) db.Store {
	t.Helper()
	s, err := db.OpenSQLite(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDirectory_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	d := NewDirectory(store, logger.Discard())

	u, created, err := d.GetOrCreate(ctx, "u1", "Alice")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "Alice", u.DisplayName)
	require.Equal(t, 0, u.FolderCount)
	require.NotEmpty(t, u.SecretID)

	again, created, err := d.GetOrCreate(ctx, "u1", "Someone else")
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, u, again)

	// Persisted on creation.
	stored, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, u.SecretID, stored.SecretID)
}

func TestDirectory_GetOrCreate_EmptyID(t *testing.T) {
	d := NewDirectory(openStore(t), logger.Discard())

	_, _, err := d.GetOrCreate(context.Background(), "", "")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
	require.Equal(t, 0, d.Len())
}

func TestDirectory_LoadAll(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	u := library.NewUser("u1", "")
	require.True(t, u.AddFolder("Vacation"))
	require.NoError(t, store.PutUser(ctx, u))
	require.NoError(t, store.PutUser(ctx, library.NewUser("u2", "")))

	d := NewDirectory(store, logger.Discard())
	n, err := d.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2, d.Len())

	got, ok := d.Get("u1")
	require.True(t, ok)
	require.True(t, got.HasFolder("Vacation"))

	_, ok = d.Get("u3")
	require.False(t, ok)
}

func TestDirectory_SnapshotIsCopy(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(openStore(t), logger.Discard())

	_, _, err := d.GetOrCreate(ctx, "b", "")
	require.NoError(t, err)
	_, _, err = d.GetOrCreate(ctx, "a", "")
	require.NoError(t, err)

	snap := d.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "a", snap[0].ID)

	snap[0].AddFolder("Mutated")
	live, _ := d.Get("a")
	require.False(t, live.HasFolder("Mutated"))
}

func TestDirectory_Replace(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(openStore(t), logger.Discard())

	_, _, err := d.GetOrCreate(ctx, "u1", "")
	require.NoError(t, err)

	fresh := library.NewUser("u1", "Reloaded")
	d.Replace(fresh)

	got, _ := d.Get("u1")
	require.Same(t, fresh, got)
}

func TestDirectory_LockSerializesUser(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(openStore(t), logger.Discard())

	u, _, err := d.GetOrCreate(ctx, "u1", "")
	require.NoError(t, err)
	require.True(t, u.AddFolder("Vacation"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := d.Lock("u1")
			defer unlock()
			u.UpdateFolderSize("Vacation", 1)
			u.UpdatePhotoCount(1)
		}()
	}
	wg.Wait()

	require.Equal(t, 50, u.FolderSize("Vacation"))
	require.Equal(t, 50, u.PhotoCount)
}

func TestDirectory_LockExisting(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(openStore(t), logger.Discard())

	for _, id := range []string{"ghost", "ghost", "nobody/else"} {
		unlock, ok := d.LockExisting(id)
		require.False(t, ok)
		require.Nil(t, unlock)
	}
	require.Empty(t, d.locks)

	_, _, err := d.GetOrCreate(ctx, "u1", "")
	require.NoError(t, err)

	unlock, ok := d.LockExisting("u1")
	require.True(t, ok)

	// Lock and LockExisting share the user's mutex.
	acquired := make(chan struct{})
	go func() {
		release := d.Lock("u1")
		close(acquired)
		release()
	}()
	select {
	case <-acquired:
		t.Fatal("Lock acquired while LockExisting held the mutex")
	default:
	}
	unlock()
	<-acquired
	require.Len(t, d.locks, 1)
}

func TestDirectory_ConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory(openStore(t), logger.Discard())

	var wg sync.WaitGroup
	results := make([]*library.User, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, _, err := d.GetOrCreate(ctx, "u1", "")
			if err == nil {
				results[i] = u
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, d.Len())
	for _, u := range results {
		require.Same(t, results[0], u)
	}
}
