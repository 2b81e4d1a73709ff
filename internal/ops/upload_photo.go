package ops

import (
	"context"
	"strings"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// UploadPhotoInput contains parameters for the UploadPhoto operation.
type UploadPhotoInput struct {
	UserID    string
	Folder    string
	Photo     string
	Reference string // opaque locator, stored as given
}

// UploadPhotoOutput contains the result of the UploadPhoto operation.
type UploadPhotoOutput struct {
	Folder     string `json:"folder"`
	Photo      string `json:"photo"`
	FolderSize int    `json:"folder_size"`
	PhotoCount int    `json:"photo_count"`
}

// UploadPhoto stores a named photo reference in a folder.
// A name already in use fails with PHOTO_ALREADY_EXISTS carrying the stored
// reference; nothing changes.
func (e *Engine) UploadPhoto(ctx context.Context, input UploadPhotoInput) (*UploadPhotoOutput, error) {
	if err := validateFolderName(input.Folder); err != nil {
		return nil, err
	}
	if err := validatePhotoName(input.Photo); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Reference) == "" {
		return nil, errors.NewInvalidRequest("reference is required")
	}

	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !u.HasFolder(input.Folder) {
		return nil, errors.NewFolderNotFound(input.Folder)
	}

	f, err := e.loadFolder(ctx, u.ID, input.Folder)
	if err != nil {
		return nil, err
	}
	if !f.InsertPhoto(input.Photo, input.Reference) {
		if ref, ok := f.Photo(input.Photo); ok {
			return nil, errors.NewPhotoAlreadyExists(input.Folder, input.Photo, ref)
		}
		return nil, errors.NewFolderFull(input.Folder, library.PhotoLimit)
	}

	in, err := e.beginIntent(ctx, u.ID, db.IntentUploadPhoto, input.Folder, input.Photo)
	if err != nil {
		return nil, err
	}

	u.UpdatePhotoCount(1)
	u.UpdateFolderSize(input.Folder, 1)

	if err := e.store.PutFolder(ctx, f); err != nil {
		e.writeFailed(in, "put folder", err)
		return nil, err
	}
	if err := e.store.PutUser(ctx, u); err != nil {
		e.writeFailed(in, "put user", err)
		return nil, err
	}
	e.endIntent(ctx, in)

	e.logger.Debug("photo uploaded", "user", u.ID, "folder", input.Folder, "photo", input.Photo)
	return &UploadPhotoOutput{
		Folder:     input.Folder,
		Photo:      input.Photo,
		FolderSize: u.FolderSize(input.Folder),
		PhotoCount: u.PhotoCount,
	}, nil
}
