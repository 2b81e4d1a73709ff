package ops

import (
	"context"
	"time"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// RepairInput contains parameters for the Repair operation.
type RepairInput struct {
	UserID string
}

// RepairOutput contains the result of the Repair operation.
type RepairOutput struct {
	UserID         string   `json:"user_id"`
	Recreated      []string `json:"recreated"`
	Removed        []string `json:"removed"`
	Resized        []string `json:"resized"`
	PhotoCount     int      `json:"photo_count"`
	IntentsCleared int      `json:"intents_cleared"`
}

// Repair reconciles a user's cached record with the durable documents.
//
// Folder membership follows the cached folder list: a listed folder without
// a document gets an empty one, a document for an unlisted folder is
// deleted. Photo counts follow the documents. The repaired record is then
// persisted and the user's pending intents cleared.
func (e *Engine) Repair(ctx context.Context, input RepairInput) (*RepairOutput, error) {
	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	in, err := e.beginIntent(ctx, u.ID, db.IntentRepair, "", "")
	if err != nil {
		return nil, err
	}

	docs, err := e.store.ListFolders(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*library.Folder, len(docs))
	for _, f := range docs {
		byName[f.Name] = f
	}

	out := &RepairOutput{UserID: u.ID, Recreated: []string{}, Removed: []string{}, Resized: []string{}}

	listed := make(map[string]bool, len(u.Folders))
	for _, name := range u.Folders {
		listed[name] = true
	}

	for _, f := range docs {
		if listed[f.Name] {
			continue
		}
		if err := e.store.DeleteFolder(ctx, u.ID, f.Name); err != nil && !errors.Is(err, errors.ErrRecordNotFound) {
			e.writeFailed(in, "delete orphan", err)
			return nil, err
		}
		out.Removed = append(out.Removed, f.Name)
	}

	sizes := make(map[string]int, len(u.Folders))
	for _, name := range u.Folders {
		f, ok := byName[name]
		if !ok {
			if err := e.store.PutFolder(ctx, library.NewFolder(u.ID, name)); err != nil {
				e.writeFailed(in, "recreate folder", err)
				return nil, err
			}
			out.Recreated = append(out.Recreated, name)
			sizes[name] = 0
			continue
		}
		if f.PhotoCount != len(f.Photos) {
			f.PhotoCount = len(f.Photos)
			f.UpdatedAt = time.Now().Unix()
			if err := e.store.PutFolder(ctx, f); err != nil {
				e.writeFailed(in, "fix folder count", err)
				return nil, err
			}
		}
		sizes[name] = len(f.Photos)
		if u.FolderSize(name) != sizes[name] {
			out.Resized = append(out.Resized, name)
		}
	}

	// Assigned directly: a drifted record may list a folder missing from the index.
	u.FolderSizes = sizes
	u.FolderCount = len(u.Folders)
	u.UpdatePhotoCount(u.SumFolderSizes() - u.PhotoCount)

	if err := e.store.PutUser(ctx, u); err != nil {
		e.writeFailed(in, "put user", err)
		return nil, err
	}

	pending, err := e.store.ListIntents(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range pending {
		if err := e.store.DeleteIntent(ctx, p.ID); err != nil {
			return nil, err
		}
		if p.ID != in.ID {
			out.IntentsCleared++
		}
	}

	out.PhotoCount = u.PhotoCount
	e.logger.Info("user repaired", "user", u.ID,
		"recreated", len(out.Recreated), "removed", len(out.Removed),
		"resized", len(out.Resized), "intents_cleared", out.IntentsCleared)
	return out, nil
}
