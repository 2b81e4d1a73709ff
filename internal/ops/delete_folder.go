package ops

import (
	"context"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
)

// DeleteFolderInput contains parameters for the DeleteFolder operation.
type DeleteFolderInput struct {
	UserID string
	Folder string
}

// DeleteFolderOutput contains the result of the DeleteFolder operation.
type DeleteFolderOutput struct {
	Folder        string `json:"folder"`
	RemovedPhotos int    `json:"removed_photos"`
	FolderCount   int    `json:"folder_count"`
	PhotoCount    int    `json:"photo_count"`
}

// DeleteFolder removes a folder and all its photos.
//
// The user's aggregate is reduced by the photo count of the durable folder
// document. When that disagrees with the cached size the aggregate is
// recomputed from the remaining sizes instead, so it never carries the drift
// forward.
func (e *Engine) DeleteFolder(ctx context.Context, input DeleteFolderInput) (*DeleteFolderOutput, error) {
	if err := validateFolderName(input.Folder); err != nil {
		return nil, err
	}

	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prev := u.Clone()
	cachedSize := u.FolderSize(input.Folder)
	if !u.DeleteFolder(input.Folder) {
		return nil, errors.NewFolderNotFound(input.Folder)
	}

	in, err := e.beginIntent(ctx, u.ID, db.IntentDeleteFolder, input.Folder, "")
	if err != nil {
		e.dir.Replace(prev)
		return nil, err
	}

	removed := cachedSize
	f, err := e.store.GetFolder(ctx, u.ID, input.Folder)
	switch {
	case err == nil:
		removed = f.PhotoCount
		if err := e.store.DeleteFolder(ctx, u.ID, input.Folder); err != nil && !errors.Is(err, errors.ErrRecordNotFound) {
			e.writeFailed(in, "delete folder", err)
			return nil, err
		}
	case errors.Is(err, errors.ErrRecordNotFound):
		e.logger.Warn("folder document already gone", "user", u.ID, "folder", input.Folder)
	default:
		e.writeFailed(in, "get folder", err)
		return nil, err
	}

	u.UpdatePhotoCount(-removed)
	if removed != cachedSize {
		e.logger.Warn("folder size drift on delete",
			"user", u.ID, "folder", input.Folder,
			"cached", cachedSize, "durable", removed)
		u.UpdatePhotoCount(u.SumFolderSizes() - u.PhotoCount)
	}

	if err := e.store.PutUser(ctx, u); err != nil {
		e.writeFailed(in, "put user", err)
		return nil, err
	}
	e.endIntent(ctx, in)

	e.logger.Info("folder deleted", "user", u.ID, "folder", input.Folder, "photos", removed)
	return &DeleteFolderOutput{
		Folder:        input.Folder,
		RemovedPhotos: removed,
		FolderCount:   u.FolderCount,
		PhotoCount:    u.PhotoCount,
	}, nil
}
