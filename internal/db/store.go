// Package db is the durable document store behind the user cache.
//
// Two kinds of documents are kept: one user record per user and one folder
// document per (user, folder name). A third, the intent journal, marks
// dual-writes that started but never finished.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/photokeep/photokeep/internal/config"
	"github.com/photokeep/photokeep/internal/library"
)

// Intent operations recorded in the journal.
const (
	IntentCreateFolder = "create_folder"
	IntentDeleteFolder = "delete_folder"
	IntentUploadPhoto  = "upload_photo"
	IntentDeletePhoto  = "delete_photo"
	IntentRepair       = "repair"
)

// Intent is a journal entry written before the first durable write of a
// multi-document operation and removed after the last one.
type Intent struct {
	ID        string `json:"id"` // ULID
	UserID    string `json:"user_id"`
	Op        string `json:"op"`
	Folder    string `json:"folder,omitempty"`
	Photo     string `json:"photo,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// Store is the durable document collaborator.
//
// Lookups that miss return errors.ErrRecordNotFound; every other failure is
// reported as errors.ErrStoreUnavailable. Nothing is retried.
type Store interface {
	GetUser(ctx context.Context, id string) (*library.User, error)
	PutUser(ctx context.Context, u *library.User) error
	ListAllUsers(ctx context.Context) ([]*library.User, error)

	GetFolder(ctx context.Context, userID, name string) (*library.Folder, error)
	PutFolder(ctx context.Context, f *library.Folder) error
	DeleteFolder(ctx context.Context, userID, name string) error
	ListFolders(ctx context.Context, userID string) ([]*library.Folder, error)

	PutIntent(ctx context.Context, in *Intent) error
	DeleteIntent(ctx context.Context, id string) error
	ListIntents(ctx context.Context, userID string) ([]*Intent, error)

	Close() error
}

// Open opens the backend selected by cfg.Backend under baseDir.
func Open(baseDir string, cfg *config.Config, logger *slog.Logger) (Store, error) {
	backend := config.BackendSQLite
	if cfg != nil && cfg.Backend != "" {
		backend = cfg.Backend
	}

	switch backend {
	case config.BackendSQLite:
		s, err := OpenSQLite(baseDir, logger)
		if err != nil {
			return nil, err
		}
		s.ConfigurePool(cfg)
		return s, nil
	case config.BackendBadger:
		return OpenBadger(filepath.Join(baseDir, "badger"), logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
