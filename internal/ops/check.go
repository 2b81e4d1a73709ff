package ops

import (
	"context"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// Drift kinds reported by Check.
const (
	DriftMissingDocument   = "missing_document"    // listed folder has no document
	DriftOrphanDocument    = "orphan_document"     // document for an unlisted folder
	DriftFolderSize        = "folder_size"         // cached size != document photo count
	DriftDocumentCount     = "document_count"      // document photo count != len(photos)
	DriftPhotoCount        = "photo_count"         // user aggregate != sum of sizes
	DriftFolderCount       = "folder_count"        // folder count != len(folders)
	DriftStoredUserMissing = "stored_user_missing" // cached user was never persisted
)

// CheckInput contains parameters for the Check operation.
type CheckInput struct {
	UserID string
}

// Drift is one disagreement between the cached record and the durable documents.
type Drift struct {
	Kind    string `json:"kind"`
	Folder  string `json:"folder,omitempty"`
	Cached  int    `json:"cached"`
	Durable int    `json:"durable"`
}

// CheckOutput contains the result of the Check operation.
type CheckOutput struct {
	UserID         string      `json:"user_id"`
	Consistent     bool        `json:"consistent"`
	Drifts         []Drift     `json:"drifts"`
	PendingIntents []db.Intent `json:"pending_intents"`
}

// Check compares the cached record with the user's durable folder documents
// and lists unfinished dual-writes. It changes nothing.
func (e *Engine) Check(ctx context.Context, input CheckInput) (*CheckOutput, error) {
	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	docs, err := e.store.ListFolders(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	intents, err := e.store.ListIntents(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	out := &CheckOutput{
		UserID:         u.ID,
		Drifts:         diffUser(u, docs),
		PendingIntents: make([]db.Intent, 0, len(intents)),
	}
	for _, in := range intents {
		out.PendingIntents = append(out.PendingIntents, *in)
	}

	if _, err := e.store.GetUser(ctx, u.ID); errors.Is(err, errors.ErrRecordNotFound) {
		out.Drifts = append(out.Drifts, Drift{Kind: DriftStoredUserMissing})
	} else if err != nil {
		return nil, err
	}

	out.Consistent = len(out.Drifts) == 0 && len(out.PendingIntents) == 0
	if !out.Consistent {
		e.logger.Warn("user drift detected", "user", u.ID, "drifts", len(out.Drifts), "pending_intents", len(out.PendingIntents))
	}
	return out, nil
}

// diffUser lists every drift between u and its folder documents.
func diffUser(u *library.User, docs []*library.Folder) []Drift {
	drifts := []Drift{}
	byName := make(map[string]*library.Folder, len(docs))
	for _, f := range docs {
		byName[f.Name] = f
	}

	listed := make(map[string]bool, len(u.Folders))
	for _, name := range u.Folders {
		listed[name] = true
		f, ok := byName[name]
		if !ok {
			drifts = append(drifts, Drift{Kind: DriftMissingDocument, Folder: name, Cached: u.FolderSize(name)})
			continue
		}
		if f.PhotoCount != len(f.Photos) {
			drifts = append(drifts, Drift{Kind: DriftDocumentCount, Folder: name, Cached: f.PhotoCount, Durable: len(f.Photos)})
		}
		if u.FolderSize(name) != len(f.Photos) {
			drifts = append(drifts, Drift{Kind: DriftFolderSize, Folder: name, Cached: u.FolderSize(name), Durable: len(f.Photos)})
		}
	}
	for _, f := range docs {
		if !listed[f.Name] {
			drifts = append(drifts, Drift{Kind: DriftOrphanDocument, Folder: f.Name, Durable: len(f.Photos)})
		}
	}

	if sum := u.SumFolderSizes(); u.PhotoCount != sum {
		drifts = append(drifts, Drift{Kind: DriftPhotoCount, Cached: u.PhotoCount, Durable: sum})
	}
	if u.FolderCount != len(u.Folders) {
		drifts = append(drifts, Drift{Kind: DriftFolderCount, Cached: u.FolderCount, Durable: len(u.Folders)})
	}
	return drifts
}
