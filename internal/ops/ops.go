// Package ops implements the consistency engine: every operation checks its
// preconditions against the cached user record, then writes the durable
// folder document and user record, then leaves the cache matching them.
package ops

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"path/filepath"

	"github.com/photokeep/photokeep/internal/cache"
	"github.com/photokeep/photokeep/internal/config"
	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// Engine runs operations against one store and its user cache.
type Engine struct {
	store      db.Store
	dir        *cache.Directory
	cfg        *config.Config
	logger     *slog.Logger
	intn       func(n int) int
	exportsDir string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandom replaces the uniform index source used by PickRandomPhoto.
// intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(e *Engine) {
		e.intn = intn
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBaseDir sets the data directory; exports default to <baseDir>/exports.
func WithBaseDir(baseDir string) Option {
	return func(e *Engine) {
		e.exportsDir = filepath.Join(baseDir, "exports")
	}
}

// NewEngine creates an engine. cfg may be nil.
func NewEngine(store db.Store, dir *cache.Directory, cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	e := &Engine{
		store:  store,
		dir:    dir,
		cfg:    cfg,
		logger: slog.Default(),
		intn:   rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.exportsDir == "" {
		if baseDir, err := config.BaseDir(); err == nil {
			e.exportsDir = filepath.Join(baseDir, "exports")
		}
	}
	return e
}

// Directory returns the user cache the engine operates on.
func (e *Engine) Directory() *cache.Directory {
	return e.dir
}

// lockUser acquires the user's lock and returns the cached record.
// On error the lock is already released.
func (e *Engine) lockUser(userID string) (*library.User, func(), error) {
	if userID == "" {
		return nil, nil, errors.NewInvalidRequest("user id must not be empty")
	}
	unlock, ok := e.dir.LockExisting(userID)
	if !ok {
		return nil, nil, errors.NewUserNotFound(userID)
	}
	u, _ := e.dir.Get(userID)
	return u, unlock, nil
}

// validateFolderName checks a folder name against the identifier rules.
func validateFolderName(name string) error {
	if !library.IsValidName(name) {
		return errors.NewInvalidName("folder", name)
	}
	return nil
}

// validatePhotoName checks a photo name against the identifier rules.
func validatePhotoName(name string) error {
	if !library.IsValidName(name) {
		return errors.NewInvalidName("photo", name)
	}
	return nil
}

// loadFolder reads the durable document for a folder the cached record says
// exists. A missing document means the two representations have drifted.
func (e *Engine) loadFolder(ctx context.Context, userID, name string) (*library.Folder, error) {
	f, err := e.store.GetFolder(ctx, userID, name)
	if errors.Is(err, errors.ErrRecordNotFound) {
		e.logger.Warn("folder document missing", "user", userID, "folder", name)
		return nil, errors.NewFolderNotFound(name)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
