package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	UserID string
	Path   string // optional, default: <exports>/<user>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Folders    int    `json:"folders"`
	Photos     int    `json:"photos"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes the user's library as JSONL: a header line, then one line per
// folder in creation order. The file is written to a temporary name and
// renamed into place, so an existing export survives a failed run.
func (e *Engine) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	u, unlock, err := e.lockUser(input.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	exportPath := input.Path
	if exportPath == "" {
		if e.exportsDir == "" {
			return nil, errors.NewInvalidRequest("path is required")
		}
		name := fmt.Sprintf("%s-%s.jsonl", SanitizeForFilename(u.ID), now.Format("2006-01-02T150405"))
		exportPath = filepath.Join(e.exportsDir, name)
	}
	// Default paths are validated too: the user id is part of the filename.
	if err := ValidatePath(exportPath, PathCheckWrite, e.cfg, e.exportsDir); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)

	header := library.ExportRecord{
		PhotoKeepExport: true,
		SchemaVersion:   library.ExportSchemaVersion,
		ExportedAt:      now.Unix(),
		UserID:          u.ID,
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ExportOutput{ExportedAt: now.Unix()}
	for _, name := range u.Folders {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}

		f, err := e.store.GetFolder(ctx, u.ID, name)
		if errors.Is(err, errors.ErrRecordNotFound) {
			e.logger.Warn("exporting folder without document as empty", "user", u.ID, "folder", name)
			f = library.NewFolder(u.ID, name)
		} else if err != nil {
			return nil, err
		}

		if err := enc.Encode(library.FolderToExportRecord(f)); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.Folders++
		out.Photos += len(f.Photos)
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted after validation.
	if isSymlink(exportPath) {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	success = true

	e.logger.Info("library exported", "user", u.ID, "path", exportPath, "folders", out.Folders, "photos", out.Photos)
	out.Path = exportPath
	return out, nil
}
