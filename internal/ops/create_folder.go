package ops

import (
	"context"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// CreateFolderInput contains parameters for the CreateFolder operation.
type CreateFolderInput struct {
	UserID string
	Folder string
}

// CreateFolderOutput contains the result of the CreateFolder operation.
type CreateFolderOutput struct {
	Folder      string `json:"folder"`
	FolderCount int    `json:"folder_count"`
}

// CreateFolder adds an empty folder to the user's library.
//
// The cached record is updated first, then the user record and the new
// folder document are written in that order.
func (e *Engine) CreateFolder(ctx context.Context, input CreateFolderInput) (*CreateFolderOutput, error) {
	if err := validateFolderName(input.Folder); err != nil {
		return nil, err
	}

	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prev := u.Clone()
	if !u.AddFolder(input.Folder) {
		// AddFolder folds both refusals into one result.
		if u.UserIsFull() {
			return nil, errors.NewUserFull(library.FolderLimit)
		}
		return nil, errors.NewFolderAlreadyExists(input.Folder)
	}

	in, err := e.beginIntent(ctx, u.ID, db.IntentCreateFolder, input.Folder, "")
	if err != nil {
		e.dir.Replace(prev)
		return nil, err
	}

	if err := e.store.PutUser(ctx, u); err != nil {
		e.writeFailed(in, "put user", err)
		return nil, err
	}
	if err := e.store.PutFolder(ctx, library.NewFolder(u.ID, input.Folder)); err != nil {
		e.writeFailed(in, "put folder", err)
		return nil, err
	}
	e.endIntent(ctx, in)

	e.logger.Info("folder created", "user", u.ID, "folder", input.Folder)
	return &CreateFolderOutput{
		Folder:      input.Folder,
		FolderCount: u.FolderCount,
	}, nil
}
