package ops

import (
	"context"

	"github.com/photokeep/photokeep/internal/errors"
)

// RandomPhotoInput contains parameters for the PickRandomPhoto operation.
type RandomPhotoInput struct {
	UserID string
	Folder string // empty: any non-empty folder
}

// RandomPhotoOutput contains the result of the PickRandomPhoto operation.
// NoContent is set, and the other fields empty, when the user has no photos
// anywhere and no folder was named.
type RandomPhotoOutput struct {
	NoContent bool   `json:"no_content"`
	Folder    string `json:"folder,omitempty"`
	Photo     string `json:"photo,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// PickRandomPhoto draws a photo uniformly from a folder. Without a folder, it
// first draws uniformly among the user's non-empty folders.
func (e *Engine) PickRandomPhoto(ctx context.Context, input RandomPhotoInput) (*RandomPhotoOutput, error) {
	if input.Folder != "" {
		if err := validateFolderName(input.Folder); err != nil {
			return nil, err
		}
	}

	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	folder := input.Folder
	if folder == "" {
		candidates := u.NonEmptyFolders()
		if len(candidates) == 0 {
			return &RandomPhotoOutput{NoContent: true}, nil
		}
		folder = candidates[e.intn(len(candidates))]
	} else {
		if !u.HasFolder(folder) {
			return nil, errors.NewFolderNotFound(folder)
		}
		if u.FolderIsEmpty(folder) {
			return nil, errors.NewFolderEmpty(folder)
		}
	}

	f, err := e.loadFolder(ctx, u.ID, folder)
	if err != nil {
		return nil, err
	}
	names := f.PhotoNames()
	if len(names) == 0 {
		e.logger.Warn("cached size says non-empty but document is empty", "user", u.ID, "folder", folder)
		return nil, errors.NewFolderEmpty(folder)
	}

	name := names[e.intn(len(names))]
	ref, _ := f.Photo(name)
	return &RandomPhotoOutput{
		Folder:    folder,
		Photo:     name,
		Reference: ref,
	}, nil
}
