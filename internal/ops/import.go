package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
)

// Import line error codes that are not error-package codes.
const (
	importParseError   = "PARSE_ERROR"
	importInvalidLine  = "INVALID_RECORD"
	importReadError    = "READ_ERROR"
	importSchemaError  = "UNSUPPORTED_SCHEMA"
	maxImportLineBytes = 4 << 20
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	UserID string
	Path   string
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	FoldersCreated int           `json:"folders_created"`
	PhotosImported int           `json:"photos_imported"`
	Skipped        int           `json:"skipped"`
	Errors         []ImportError `json:"errors"`
}

// ImportError describes one line or photo that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	Folder  string `json:"folder,omitempty"`
	Photo   string `json:"photo,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import replays an export file into the user's library through CreateFolder
// and UploadPhoto, so every capacity and naming rule applies. Existing
// folders are merged into; photo names already present are skipped. Only a
// store failure or cancellation aborts the run.
func (e *Engine) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, e.cfg, e.exportsDir); err != nil {
		return nil, err
	}
	if _, ok := e.dir.Get(input.UserID); !ok {
		return nil, errors.NewUserNotFound(input.UserID)
	}

	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	out := &ImportOutput{Errors: []ImportError{}}
	lineErr := func(ie ImportError) {
		out.Errors = append(out.Errors, ie)
		out.Skipped++
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxImportLineBytes)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("import")
		}

		var record library.ExportRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			lineErr(ImportError{Line: lineNum, Code: importParseError, Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if record.PhotoKeepExport {
			if record.SchemaVersion != library.ExportSchemaVersion {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("%s: schema version %q", importSchemaError, record.SchemaVersion))
			}
			continue
		}
		if record.Folder == "" {
			lineErr(ImportError{Line: lineNum, Code: importInvalidLine, Message: "missing folder field"})
			continue
		}

		if err := e.importFolder(ctx, input.UserID, lineNum, &record, out, lineErr); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		lineErr(ImportError{Line: lineNum, Code: importReadError, Message: fmt.Sprintf("failed to read file: %v", err)})
	}

	e.logger.Info("library imported", "user", input.UserID, "path", input.Path,
		"folders", out.FoldersCreated, "photos", out.PhotosImported, "skipped", out.Skipped)
	return out, nil
}

// importFolder creates one folder (if needed) and uploads its photos in name
// order. Returns an error only for failures that should abort the import.
func (e *Engine) importFolder(ctx context.Context, userID string, line int, record *library.ExportRecord, out *ImportOutput, lineErr func(ImportError)) error {
	_, err := e.CreateFolder(ctx, CreateFolderInput{UserID: userID, Folder: record.Folder})
	switch {
	case err == nil:
		out.FoldersCreated++
	case errors.Is(err, errors.ErrFolderAlreadyExists):
	case fatalImportErr(err):
		return err
	default:
		lineErr(importErrorFrom(line, record.Folder, "", err))
		return nil
	}

	names := make([]string, 0, len(record.Photos))
	for name := range record.Photos {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, err := e.UploadPhoto(ctx, UploadPhotoInput{
			UserID:    userID,
			Folder:    record.Folder,
			Photo:     name,
			Reference: record.Photos[name],
		})
		switch {
		case err == nil:
			out.PhotosImported++
		case fatalImportErr(err):
			return err
		default:
			lineErr(importErrorFrom(line, record.Folder, name, err))
		}
	}
	return nil
}

func fatalImportErr(err error) bool {
	return errors.Is(err, errors.ErrStoreUnavailable) ||
		errors.Is(err, errors.ErrCancelled) ||
		errors.Is(err, errors.ErrInternal)
}

func importErrorFrom(line int, folder, photo string, err error) ImportError {
	ie := ImportError{Line: line, Folder: folder, Photo: photo, Code: string(errors.ErrInternal), Message: err.Error()}
	if kErr, ok := errors.As(err); ok {
		ie.Code = string(kErr.Code)
		ie.Message = kErr.Message
	}
	return ie
}
