package ops

import (
	"context"

	"github.com/photokeep/photokeep/internal/errors"
)

// ListFoldersInput contains parameters for the ListFolders operation.
type ListFoldersInput struct {
	UserID string
}

// FolderSummary is one row of a folder listing.
type FolderSummary struct {
	Name       string `json:"name"`
	PhotoCount int    `json:"photo_count"`
}

// ListFoldersOutput contains the result of the ListFolders operation.
type ListFoldersOutput struct {
	Folders     []FolderSummary `json:"folders"`
	FolderCount int             `json:"folder_count"`
	PhotoCount  int             `json:"photo_count"`
}

// ListFolders returns the user's folders in creation order with their sizes.
// It reads only the cached record.
func (e *Engine) ListFolders(ctx context.Context, input ListFoldersInput) (*ListFoldersOutput, error) {
	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	folders := make([]FolderSummary, 0, len(u.Folders))
	for _, name := range u.Folders {
		folders = append(folders, FolderSummary{Name: name, PhotoCount: u.FolderSize(name)})
	}
	return &ListFoldersOutput{
		Folders:     folders,
		FolderCount: u.FolderCount,
		PhotoCount:  u.PhotoCount,
	}, nil
}

// ListPhotosInput contains parameters for the ListPhotos operation.
type ListPhotosInput struct {
	UserID string
	Folder string
}

// PhotoSummary is one row of a photo listing.
type PhotoSummary struct {
	Name      string `json:"name"`
	Reference string `json:"reference"`
}

// ListPhotosOutput contains the result of the ListPhotos operation.
type ListPhotosOutput struct {
	Folder string         `json:"folder"`
	Photos []PhotoSummary `json:"photos"`
}

// ListPhotos returns a folder's photos ordered by name.
func (e *Engine) ListPhotos(ctx context.Context, input ListPhotosInput) (*ListPhotosOutput, error) {
	if err := validateFolderName(input.Folder); err != nil {
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

	out := &ListPhotosOutput{Folder: input.Folder, Photos: []PhotoSummary{}}
	if u.FolderIsEmpty(input.Folder) {
		return out, nil
	}

	f, err := e.loadFolder(ctx, u.ID, input.Folder)
	if err != nil {
		return nil, err
	}
	for _, name := range f.PhotoNames() {
		ref, _ := f.Photo(name)
		out.Photos = append(out.Photos, PhotoSummary{Name: name, Reference: ref})
	}
	return out, nil
}
