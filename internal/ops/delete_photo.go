package ops

import (
	"context"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
)

// DeletePhotoInput contains parameters for the DeletePhoto operation.
type DeletePhotoInput struct {
	UserID string
	Folder string
	Photo  string
}

// DeletePhotoOutput contains the result of the DeletePhoto operation.
type DeletePhotoOutput struct {
	Folder     string `json:"folder"`
	Photo      string `json:"photo"`
	Reference  string `json:"reference"`
	FolderSize int    `json:"folder_size"`
	PhotoCount int    `json:"photo_count"`
}

// DeletePhoto removes one photo from a folder.
func (e *Engine) DeletePhoto(ctx context.Context, input DeletePhotoInput) (*DeletePhotoOutput, error) {
	if err := validateFolderName(input.Folder); err != nil {
		return nil, err
	}
	if err := validatePhotoName(input.Photo); err != nil {
		return nil, err
	}

	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !u.HasFolder(input.Folder) {
		return nil, errors.NewFolderNotFound(input.Folder)
	}
	if u.FolderIsEmpty(input.Folder) {
		return nil, errors.NewFolderEmpty(input.Folder)
	}

	f, err := e.loadFolder(ctx, u.ID, input.Folder)
	if err != nil {
		return nil, err
	}
	ref, _ := f.Photo(input.Photo)
	if !f.DeletePhoto(input.Photo) {
		return nil, errors.NewPhotoNotFound(input.Folder, input.Photo)
	}

	in, err := e.beginIntent(ctx, u.ID, db.IntentDeletePhoto, input.Folder, input.Photo)
	if err != nil {
		return nil, err
	}

	u.UpdatePhotoCount(-1)
	u.UpdateFolderSize(input.Folder, -1)

	if err := e.store.PutFolder(ctx, f); err != nil {
		e.writeFailed(in, "put folder", err)
		return nil, err
	}
	if err := e.store.PutUser(ctx, u); err != nil {
		e.writeFailed(in, "put user", err)
		return nil, err
	}
	e.endIntent(ctx, in)

	e.logger.Debug("photo deleted", "user", u.ID, "folder", input.Folder, "photo", input.Photo)
	return &DeletePhotoOutput{
		Folder:     input.Folder,
		Photo:      input.Photo,
		Reference:  ref,
		FolderSize: u.FolderSize(input.Folder),
		PhotoCount: u.PhotoCount,
	}, nil
}
