package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/library"
	"github.com/photokeep/photokeep/internal/logger"
)

func seedLibrary(t *testing.T, e *Engine, userID string) {
	t.Helper()
	ctx := context.Background()
	register(t, e, userID)

	for _, folder := range []string{"Vacation", "Empty"} {
		_, err := e.CreateFolder(ctx, CreateFolderInput{UserID: userID, Folder: folder})
		require.NoError(t, err)
	}
	for _, photo := range []string{"Beach1", "Beach2"} {
		_, err := e.UploadPhoto(ctx, UploadPhotoInput{UserID: userID, Folder: "Vacation", Photo: photo, Reference: "ref://" + photo})
		require.NoError(t, err)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	seedLibrary(t, e, "U1")

	out, err := e.Export(ctx, ExportInput{UserID: "U1"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Folders)
	require.Equal(t, 2, out.Photos)
	require.Equal(t, e.exportsDir, filepath.Dir(out.Path))
	require.True(t, strings.HasPrefix(filepath.Base(out.Path), "U1-"))

	file, err := os.Open(out.Path)
	require.NoError(t, err)
	defer file.Close()

	var lines []library.ExportRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec library.ExportRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		lines = append(lines, rec)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 3)
	require.True(t, lines[0].PhotoKeepExport)
	require.Equal(t, "U1", lines[0].UserID)
	require.Equal(t, "Vacation", lines[1].Folder)
	require.Equal(t, "ref://Beach2", lines[1].Photos["Beach2"])
	require.Equal(t, "Empty", lines[2].Folder)

	// No temp files left behind.
	entries, err := os.ReadDir(e.exportsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestExport_RejectsOutsidePath(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	register(t, e, "U1")

	_, err := e.Export(ctx, ExportInput{UserID: "U1", Path: filepath.Join(t.TempDir(), "out.jsonl")})
	requireCode(t, err, errors.ErrInvalidRequest)
}

func TestImport_RoundTripIntoBadger(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestEngine(t)
	seedLibrary(t, src, "U1")

	exported, err := src.Export(ctx, ExportInput{UserID: "U1"})
	require.NoError(t, err)

	// Import into a different backend that shares the exports directory.
	baseDir := filepath.Dir(src.exportsDir)
	bg, err := db.OpenBadger(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	defer bg.Close()
	dst := newEngineOn(bg, baseDir)
	register(t, dst, "U2")

	out, err := dst.Import(ctx, ImportInput{UserID: "U2", Path: exported.Path})
	require.NoError(t, err)
	require.Equal(t, 2, out.FoldersCreated)
	require.Equal(t, 2, out.PhotosImported)
	require.Equal(t, 0, out.Skipped)

	list, err := dst.ListFolders(ctx, ListFoldersInput{UserID: "U2"})
	require.NoError(t, err)
	require.Equal(t, []FolderSummary{{Name: "Vacation", PhotoCount: 2}, {Name: "Empty", PhotoCount: 0}}, list.Folders)

	// Importing again skips every photo and creates nothing.
	again, err := dst.Import(ctx, ImportInput{UserID: "U2", Path: exported.Path})
	require.NoError(t, err)
	require.Equal(t, 0, again.FoldersCreated)
	require.Equal(t, 0, again.PhotosImported)
	require.Equal(t, 2, again.Skipped)
	for _, ie := range again.Errors {
		require.Equal(t, string(errors.ErrPhotoAlreadyExists), ie.Code)
	}

	check, err := dst.Check(ctx, CheckInput{UserID: "U2"})
	require.NoError(t, err)
	require.True(t, check.Consistent, "drifts: %+v", check.Drifts)
}

func TestImport_LineErrors(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	register(t, e, "U1")

	path := filepath.Join(e.exportsDir, "bad.jsonl")
	body := strings.Join([]string{
		`{"_photokeep_export": true, "schema_version": "1.0"}`,
		`{not json}`,
		`{"photos": {"A": "ref://a"}}`,
		`{"folder": "bad name"}`,
		`{"folder": "Good", "photos": {"Ok": "ref://ok", "bad name": "ref://x"}}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	out, err := e.Import(ctx, ImportInput{UserID: "U1", Path: path})
	require.NoError(t, err)
	require.Equal(t, 1, out.FoldersCreated)
	require.Equal(t, 1, out.PhotosImported)
	require.Equal(t, 4, out.Skipped)

	codes := make([]string, 0, len(out.Errors))
	for _, ie := range out.Errors {
		codes = append(codes, ie.Code)
	}
	require.Equal(t, []string{importParseError, importInvalidLine, string(errors.ErrInvalidName), string(errors.ErrInvalidName)}, codes)
	require.Equal(t, 5, out.Errors[3].Line)
}

func TestImport_UnsupportedSchema(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	register(t, e, "U1")

	path := filepath.Join(e.exportsDir, "future.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"_photokeep_export": true, "schema_version": "9.0"}`), 0600))

	_, err := e.Import(ctx, ImportInput{UserID: "U1", Path: path})
	requireCode(t, err, errors.ErrInvalidRequest)
}

func TestImport_MissingFile(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	register(t, e, "U1")

	_, err := e.Import(ctx, ImportInput{UserID: "U1", Path: filepath.Join(e.exportsDir, "nope.jsonl")})
	requireCode(t, err, errors.ErrFileNotFound)
}
