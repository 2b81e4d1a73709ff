package db

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

const (
	userPrefix   = "user:"
	folderPrefix = "folder:"
	intentPrefix = "intent:"
)

// BadgerStore keeps documents as JSON values in an embedded Badger database.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens (or creates) a Badger database in dir.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	database, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("badger store opened", "path", dir)
	}
	return &BadgerStore{db: database, logger: logger}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func userKey(id string) []byte {
	return []byte(userPrefix + id)
}

func folderKey(userID, name string) []byte {
	return []byte(folderPrefix + library.FolderID(userID, name))
}

func intentKey(id string) []byte {
	return []byte(intentPrefix + id)
}

// get retrieves a value by key.
func (s *BadgerStore) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by key.
func (s *BadgerStore) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewInternal(err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// scan decodes every value under prefix, calling fn for each.
func (s *BadgerStore) scan(prefix []byte, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) wrap(ctx context.Context, op string, err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return storeErr(ctx, op, err)
}

// GetUser retrieves a user record by id.
func (s *BadgerStore) GetUser(ctx context.Context, id string) (*library.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("get user")
	}
	var u library.User
	err := s.get(userKey(id), &u)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.NewRecordNotFound("user:" + id)
	}
	if err != nil {
		return nil, s.wrap(ctx, "get user", err)
	}
	u.Folders = nonNilFolders(u.Folders)
	u.FolderSizes = nonNilSizes(u.FolderSizes)
	return &u, nil
}

// PutUser inserts or replaces a user record.
func (s *BadgerStore) PutUser(ctx context.Context, u *library.User) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("put user")
	}
	if err := s.set(userKey(u.ID), u); err != nil {
		return s.wrap(ctx, "put user", err)
	}
	return nil
}

// ListAllUsers returns every stored user record ordered by id.
func (s *BadgerStore) ListAllUsers(ctx context.Context) ([]*library.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("list users")
	}
	var users []*library.User
	err := s.scan([]byte(userPrefix), func(val []byte) error {
		var u library.User
		if err := json.Unmarshal(val, &u); err != nil {
			return err
		}
		u.Folders = nonNilFolders(u.Folders)
		u.FolderSizes = nonNilSizes(u.FolderSizes)
		users = append(users, &u)
		return nil
	})
	if err != nil {
		return nil, s.wrap(ctx, "list users", err)
	}
	return users, nil
}

// GetFolder retrieves the folder document for (userID, name).
func (s *BadgerStore) GetFolder(ctx context.Context, userID, name string) (*library.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("get folder")
	}
	var f library.Folder
	err := s.get(folderKey(userID, name), &f)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.NewRecordNotFound("folder:" + library.FolderID(userID, name))
	}
	if err != nil {
		return nil, s.wrap(ctx, "get folder", err)
	}
	if f.Photos == nil {
		f.Photos = map[string]string{}
	}
	return &f, nil
}

// PutFolder inserts or replaces a folder document.
func (s *BadgerStore) PutFolder(ctx context.Context, f *library.Folder) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("put folder")
	}
	f.ID = library.FolderID(f.UserID, f.Name)
	if err := s.set(folderKey(f.UserID, f.Name), f); err != nil {
		return s.wrap(ctx, "put folder", err)
	}
	return nil
}

// DeleteFolder removes the folder document for (userID, name).
// Returns RECORD_NOT_FOUND if no document existed.
func (s *BadgerStore) DeleteFolder(ctx context.Context, userID, name string) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("delete folder")
	}
	key := folderKey(userID, name)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NewRecordNotFound("folder:" + library.FolderID(userID, name))
	}
	if err != nil {
		return s.wrap(ctx, "delete folder", err)
	}
	return nil
}

// ListFolders returns every folder document owned by userID ordered by name.
func (s *BadgerStore) ListFolders(ctx context.Context, userID string) ([]*library.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("list folders")
	}
	var folders []*library.Folder
	err := s.scan([]byte(folderPrefix+userID+"/"), func(val []byte) error {
		var f library.Folder
		if err := json.Unmarshal(val, &f); err != nil {
			return err
		}
		// A user id containing "/" shares a key prefix with another user.
		if f.UserID != userID {
			return nil
		}
		if f.Photos == nil {
			f.Photos = map[string]string{}
		}
		folders = append(folders, &f)
		return nil
	})
	if err != nil {
		return nil, s.wrap(ctx, "list folders", err)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

// PutIntent records a journal entry.
func (s *BadgerStore) PutIntent(ctx context.Context, in *Intent) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("put intent")
	}
	if err := s.set(intentKey(in.ID), in); err != nil {
		return s.wrap(ctx, "put intent", err)
	}
	return nil
}

// DeleteIntent removes a journal entry. Deleting a missing entry is not an error.
func (s *BadgerStore) DeleteIntent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("delete intent")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(intentKey(id))
	})
	if err != nil {
		return s.wrap(ctx, "delete intent", err)
	}
	return nil
}

// ListIntents returns pending journal entries, oldest first.
// An empty userID lists entries for every user.
func (s *BadgerStore) ListIntents(ctx context.Context, userID string) ([]*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("list intents")
	}
	var intents []*Intent
	err := s.scan([]byte(intentPrefix), func(val []byte) error {
		var in Intent
		if err := json.Unmarshal(val, &in); err != nil {
			return err
		}
		if userID == "" || in.UserID == userID {
			intents = append(intents, &in)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap(ctx, "list intents", err)
	}
	// Keys are ULIDs so iteration order is already chronological.
	return intents, nil
}
