package ops

import (
	"context"

	"github.com/photokeep/photokeep/internal/errors"
)

// GetPhotoInput contains parameters for the GetPhoto operation.
type GetPhotoInput struct {
	UserID string
	Folder string
	Photo  string
}

// GetPhotoOutput contains the result of the GetPhoto operation.
type GetPhotoOutput struct {
	Folder    string `json:"folder"`
	Photo     string `json:"photo"`
	Reference string `json:"reference"`
}

// GetPhoto returns the reference stored under a photo name.
func (e *Engine) GetPhoto(ctx context.Context, input GetPhotoInput) (*GetPhotoOutput, error) {
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
	ref, ok := f.Photo(input.Photo)
	if !ok {
		return nil, errors.NewPhotoNotFound(input.Folder, input.Photo)
	}
	return &GetPhotoOutput{Folder: input.Folder, Photo: input.Photo, Reference: ref}, nil
}
