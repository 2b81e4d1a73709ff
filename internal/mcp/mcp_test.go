package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/photokeep/photokeep/internal/cache"
	"github.com/photokeep/photokeep/internal/config"
	"github.com/photokeep/photokeep/internal/db"
	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/logger"
	"github.com/photokeep/photokeep/internal/ops"
)

// testSetup creates an engine over a temporary store plus a config for testing.
func testSetup(t *testing.T) (*ops.Engine, *config.Config) {
	t.Helper()

	tmpDir := t.TempDir()
	store, err := db.OpenSQLite(tmpDir, logger.Discard())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests

	dir := cache.NewDirectory(store, logger.Discard())
	engine := ops.NewEngine(store, dir, cfg,
		ops.WithLogger(logger.Discard()),
		ops.WithBaseDir(tmpDir),
		ops.WithRandom(func(int) int { return 0 }),
	)
	return engine, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// decodeResult unmarshals a success result into out.
func decodeResult(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	require.NotNil(t, result)
	text := result.Content[0].(mcp.TextContent).Text
	require.False(t, result.IsError, "unexpected error result: %s", text)
	require.NoError(t, json.Unmarshal([]byte(text), out))
}

// errorCode returns the code of an error result.
func errorCode(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, result.IsError, "expected error result")
	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload))
	return payload["error"]["code"].(string)
}

func TestHandleFolderCreate(t *testing.T) {
	engine, _ := testSetup(t)
	h := NewHandlers(engine)
	ctx := context.Background()

	t.Run("registers user and creates folder", func(t *testing.T) {
		result, err := h.HandleFolderCreate(ctx, makeRequest(map[string]any{
			"user_id":      "U1",
			"display_name": "Sam",
			"folder":       "Cats",
		}))
		require.NoError(t, err)

		var out ops.CreateFolderOutput
		decodeResult(t, result, &out)
		require.Equal(t, "Cats", out.Folder)
		require.Equal(t, 1, out.FolderCount)

		u, ok := engine.Directory().Get("U1")
		require.True(t, ok)
		require.Equal(t, "Sam", u.DisplayName)
	})

	t.Run("duplicate folder", func(t *testing.T) {
		result, err := h.HandleFolderCreate(ctx, makeRequest(map[string]any{
			"user_id": "U1",
			"folder":  "Cats",
		}))
		require.NoError(t, err)
		require.Equal(t, string(errors.ErrFolderAlreadyExists), errorCode(t, result))
	})

	t.Run("invalid name", func(t *testing.T) {
		result, err := h.HandleFolderCreate(ctx, makeRequest(map[string]any{
			"user_id": "U1",
			"folder":  "my cats",
		}))
		require.NoError(t, err)
		require.Equal(t, string(errors.ErrInvalidName), errorCode(t, result))
	})

	t.Run("missing user id", func(t *testing.T) {
		result, err := h.HandleFolderCreate(ctx, makeRequest(map[string]any{
			"folder": "Cats",
		}))
		require.NoError(t, err)
		require.Equal(t, string(errors.ErrInvalidRequest), errorCode(t, result))
	})

	t.Run("wrong argument type", func(t *testing.T) {
		result, err := h.HandleFolderCreate(ctx, makeRequest(map[string]any{
			"user_id": "U1",
			"folder":  42,
		}))
		require.NoError(t, err)
		require.Equal(t, string(errors.ErrInvalidRequest), errorCode(t, result))
	})
}

func TestHandlePhotoLifecycle(t *testing.T) {
	engine, _ := testSetup(t)
	h := NewHandlers(engine)
	ctx := context.Background()
	user := map[string]any{"user_id": "U1"}
	with := func(kv ...any) map[string]any {
		args := map[string]any{}
		for k, v := range user {
			args[k] = v
		}
		for i := 0; i+1 < len(kv); i += 2 {
			args[kv[i].(string)] = kv[i+1]
		}
		return args
	}

	result, err := h.HandleFolderCreate(ctx, makeRequest(with("folder", "Dogs")))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = h.HandlePhotoUpload(ctx, makeRequest(with("folder", "Dogs", "photo", "Rex", "reference", "ref://rex")))
	require.NoError(t, err)
	var up ops.UploadPhotoOutput
	decodeResult(t, result, &up)
	require.Equal(t, 1, up.FolderSize)
	require.Equal(t, 1, up.PhotoCount)

	result, err = h.HandlePhotoUpload(ctx, makeRequest(with("folder", "Dogs", "photo", "Rex", "reference", "ref://other")))
	require.NoError(t, err)
	require.Equal(t, string(errors.ErrPhotoAlreadyExists), errorCode(t, result))

	result, err = h.HandlePhotoGet(ctx, makeRequest(with("folder", "Dogs", "photo", "Rex")))
	require.NoError(t, err)
	var got ops.GetPhotoOutput
	decodeResult(t, result, &got)
	require.Equal(t, "ref://rex", got.Reference)

	result, err = h.HandlePhotoList(ctx, makeRequest(with("folder", "Dogs")))
	require.NoError(t, err)
	var photos ops.ListPhotosOutput
	decodeResult(t, result, &photos)
	require.Equal(t, []ops.PhotoSummary{{Name: "Rex", Reference: "ref://rex"}}, photos.Photos)

	result, err = h.HandlePhotoRandom(ctx, makeRequest(with()))
	require.NoError(t, err)
	var random ops.RandomPhotoOutput
	decodeResult(t, result, &random)
	require.False(t, random.NoContent)
	require.Equal(t, "Rex", random.Photo)

	result, err = h.HandleFolderList(ctx, makeRequest(with()))
	require.NoError(t, err)
	var folders ops.ListFoldersOutput
	decodeResult(t, result, &folders)
	require.Equal(t, []ops.FolderSummary{{Name: "Dogs", PhotoCount: 1}}, folders.Folders)

	result, err = h.HandlePhotoDelete(ctx, makeRequest(with("folder", "Dogs", "photo", "Rex")))
	require.NoError(t, err)
	require.False(t, result.IsError)

	result, err = h.HandlePhotoDelete(ctx, makeRequest(with("folder", "Dogs", "photo", "Rex")))
	require.NoError(t, err)
	require.Equal(t, string(errors.ErrFolderEmpty), errorCode(t, result))

	// A named empty folder is an error; with no folder named there is simply
	// nothing to pick.
	result, err = h.HandlePhotoRandom(ctx, makeRequest(with("folder", "Dogs")))
	require.NoError(t, err)
	require.Equal(t, string(errors.ErrFolderEmpty), errorCode(t, result))

	result, err = h.HandlePhotoRandom(ctx, makeRequest(with()))
	require.NoError(t, err)
	var none ops.RandomPhotoOutput
	decodeResult(t, result, &none)
	require.True(t, none.NoContent)
	require.Empty(t, none.Photo)

	result, err = h.HandleFolderDelete(ctx, makeRequest(with("folder", "Dogs")))
	require.NoError(t, err)
	var deleted ops.DeleteFolderOutput
	decodeResult(t, result, &deleted)
	require.Equal(t, 0, deleted.FolderCount)

	result, err = h.HandleLibraryStats(ctx, makeRequest(with()))
	require.NoError(t, err)
	var stats ops.StatsOutput
	decodeResult(t, result, &stats)
	require.Equal(t, 1, stats.Users)
	require.Equal(t, 0, stats.Folders)
}

func TestHandleExportImport(t *testing.T) {
	engine, _ := testSetup(t)
	h := NewHandlers(engine)
	ctx := context.Background()

	_, err := h.HandleFolderCreate(ctx, makeRequest(map[string]any{"user_id": "U1", "folder": "Trip"}))
	require.NoError(t, err)
	_, err = h.HandlePhotoUpload(ctx, makeRequest(map[string]any{
		"user_id": "U1", "folder": "Trip", "photo": "Sunset", "reference": "ref://sunset",
	}))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "lib.jsonl")
	result, err := h.HandleLibraryExport(ctx, makeRequest(map[string]any{"user_id": "U1", "path": path}))
	require.NoError(t, err)
	var exported ops.ExportOutput
	decodeResult(t, result, &exported)
	require.Equal(t, path, exported.Path)
	require.Equal(t, 1, exported.Photos)

	result, err = h.HandleLibraryImport(ctx, makeRequest(map[string]any{"user_id": "U2", "path": path}))
	require.NoError(t, err)
	var imported ops.ImportOutput
	decodeResult(t, result, &imported)
	require.Equal(t, 1, imported.FoldersCreated)
	require.Equal(t, 1, imported.PhotosImported)

	result, err = h.HandleLibraryImport(ctx, makeRequest(map[string]any{"user_id": "U2"}))
	require.NoError(t, err)
	require.Equal(t, string(errors.ErrInvalidRequest), errorCode(t, result))
}

func TestHandleLibraryCheck(t *testing.T) {
	engine, _ := testSetup(t)
	h := NewHandlers(engine)
	ctx := context.Background()

	_, err := h.HandleFolderCreate(ctx, makeRequest(map[string]any{"user_id": "U1", "folder": "A"}))
	require.NoError(t, err)

	result, err := h.HandleLibraryCheck(ctx, makeRequest(map[string]any{"user_id": "U1"}))
	require.NoError(t, err)
	var resp CheckResponse
	decodeResult(t, result, &resp)
	require.True(t, resp.Check.Consistent)
	require.Nil(t, resp.Repair)

	result, err = h.HandleLibraryCheck(ctx, makeRequest(map[string]any{"user_id": "U1", "repair": true}))
	require.NoError(t, err)
	resp = CheckResponse{}
	decodeResult(t, result, &resp)
	require.NotNil(t, resp.Repair)
	require.Empty(t, resp.Repair.Recreated)
}

func TestServerRegistration(t *testing.T) {
	engine, cfg := testSetup(t)

	s := NewServer(engine, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"folder_create",
		"folder_delete",
		"folder_list",
		"photo_upload",
		"photo_delete",
		"photo_get",
		"photo_list",
		"photo_random",
		"library_stats",
		"library_export",
		"library_import",
		"library_check",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	engine, cfg := testSetup(t)

	cfg.DisabledTools = []string{"library_import", "library_check", "library_check"}
	s := NewServer(engine, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 10 {
		t.Errorf("registered tool count = %d, want 10", len(tools))
	}
	for _, name := range []string{"library_import", "library_check"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	engine, cfg := testSetup(t)

	cfg.DisabledTypes = []string{"library"}
	s := NewServer(engine, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 8 {
		t.Errorf("registered tool count = %d, want 8", len(tools))
	}
	for name := range tools {
		if GetTypeForTool(name) == "library" {
			t.Errorf("tool %q of disabled type should not be registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	engine, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(engine, cfg, "test")

	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"photo_random", "library_import"}, 0},
		{"one unknown", []string{"photo_random", "fake_tool"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	require.Empty(t, ValidateDisabledTypes([]string{"folder", "photo", "library"}))
	require.Equal(t, []string{"album"}, ValidateDisabledTypes([]string{"photo", "album"}))
}

func TestExpandTypesToTools(t *testing.T) {
	require.Nil(t, ExpandTypesToTools(nil))

	tools := ExpandTypesToTools([]string{"folder"})
	sort.Strings(tools)
	require.Equal(t, []string{"folder_create", "folder_delete", "folder_list"}, tools)
}

func TestGetTypeForTool(t *testing.T) {
	require.Equal(t, "photo", GetTypeForTool("photo_upload"))
	require.Equal(t, "library", GetTypeForTool("library_check"))
	require.Equal(t, "", GetTypeForTool("stats"))
	require.Equal(t, "", GetTypeForTool("_x"))
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()

	if len(names) != 12 {
		t.Errorf("AllToolNames() returned %d names, want 12", len(names))
	}

	unknown := ValidateDisabledTools(names)
	if len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	kErr := errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied"))
	kErr.Details = map[string]any{"path": "/tmp/secret.db"}
	r := errorResult(kErr)
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorKeepsCode(t *testing.T) {
	wrapped := fmt.Errorf("import line 3: %w", errors.NewFolderFull("Cats", 1000))

	r := errorResult(wrapped)
	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload))
	require.Equal(t, string(errors.ErrFolderFull), payload["error"]["code"])
	require.Equal(t, float64(507), payload["error"]["status"])

	details := payload["error"]["details"].(map[string]any)
	require.Equal(t, errors.ScopeFolder, details["scope"])
}

func TestErrorResult_PlainErrorIsInternal(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))
	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload))
	require.Equal(t, "INTERNAL", payload["error"]["code"])
	require.Equal(t, "an internal error occurred", payload["error"]["message"])
}
