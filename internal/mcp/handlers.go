package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/photokeep/photokeep/internal/errors"
	"github.com/photokeep/photokeep/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	engine *ops.Engine
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(engine *ops.Engine) *Handlers {
	return &Handlers{engine: engine}
}

// Request types for each tool

// Identity carries the caller's identity. Every tool takes it.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// FolderRequest represents the arguments for folder_create, folder_delete,
// photo_list and photo_random.
type FolderRequest struct {
	Identity
	Folder string `json:"folder,omitempty"`
}

// PhotoRequest represents the arguments for photo_delete and photo_get.
type PhotoRequest struct {
	Identity
	Folder string `json:"folder"`
	Photo  string `json:"photo"`
}

// UploadRequest represents the arguments for photo_upload.
type UploadRequest struct {
	Identity
	Folder    string `json:"folder"`
	Photo     string `json:"photo"`
	Reference string `json:"reference"`
}

// PathRequest represents the arguments for library_export and library_import.
type PathRequest struct {
	Identity
	Path string `json:"path,omitempty"`
}

// CheckRequest represents the arguments for library_check.
type CheckRequest struct {
	Identity
	Repair bool `json:"repair,omitempty"`
}

// CheckResponse is the library_check result. Repair is set only when requested.
type CheckResponse struct {
	Check  *ops.CheckOutput  `json:"check"`
	Repair *ops.RepairOutput `json:"repair,omitempty"`
}

// register makes sure the caller has a record before the tool runs.
func (h *Handlers) register(ctx context.Context, id Identity) error {
	_, err := h.engine.Register(ctx, ops.RegisterInput{
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
	})
	return err
}

// HandleFolderCreate handles the folder_create tool call.
func (h *Handlers) HandleFolderCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.CreateFolder(ctx, ops.CreateFolderInput{
		UserID: input.UserID,
		Folder: input.Folder,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFolderDelete handles the folder_delete tool call.
func (h *Handlers) HandleFolderDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.DeleteFolder(ctx, ops.DeleteFolderInput{
		UserID: input.UserID,
		Folder: input.Folder,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFolderList handles the folder_list tool call.
func (h *Handlers) HandleFolderList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[Identity](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.ListFolders(ctx, ops.ListFoldersInput{UserID: input.UserID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePhotoUpload handles the photo_upload tool call.
func (h *Handlers) HandlePhotoUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UploadRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.UploadPhoto(ctx, ops.UploadPhotoInput{
		UserID:    input.UserID,
		Folder:    input.Folder,
		Photo:     input.Photo,
		Reference: input.Reference,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePhotoDelete handles the photo_delete tool call.
func (h *Handlers) HandlePhotoDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PhotoRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.DeletePhoto(ctx, ops.DeletePhotoInput{
		UserID: input.UserID,
		Folder: input.Folder,
		Photo:  input.Photo,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePhotoGet handles the photo_get tool call.
func (h *Handlers) HandlePhotoGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PhotoRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.GetPhoto(ctx, ops.GetPhotoInput{
		UserID: input.UserID,
		Folder: input.Folder,
		Photo:  input.Photo,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePhotoList handles the photo_list tool call.
func (h *Handlers) HandlePhotoList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.ListPhotos(ctx, ops.ListPhotosInput{
		UserID: input.UserID,
		Folder: input.Folder,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePhotoRandom handles the photo_random tool call.
func (h *Handlers) HandlePhotoRandom(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FolderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.PickRandomPhoto(ctx, ops.RandomPhotoInput{
		UserID: input.UserID,
		Folder: input.Folder,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLibraryStats handles the library_stats tool call.
func (h *Handlers) HandleLibraryStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[Identity](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.Stats(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLibraryExport handles the library_export tool call.
func (h *Handlers) HandleLibraryExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.Export(ctx, ops.ExportInput{
		UserID: input.UserID,
		Path:   input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLibraryImport handles the library_import tool call.
func (h *Handlers) HandleLibraryImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	result, err := h.engine.Import(ctx, ops.ImportInput{
		UserID: input.UserID,
		Path:   input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLibraryCheck handles the library_check tool call.
func (h *Handlers) HandleLibraryCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.register(ctx, input.Identity); err != nil {
		return errorResult(err), nil
	}

	check, err := h.engine.Check(ctx, ops.CheckInput{UserID: input.UserID})
	if err != nil {
		return errorResult(err), nil
	}
	resp := CheckResponse{Check: check}

	if input.Repair {
		resp.Repair, err = h.engine.Repair(ctx, ops.RepairInput{UserID: input.UserID})
		if err != nil {
			return errorResult(err), nil
		}
	}

	return successResult(resp)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if kErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    kErr.Code,
			"message": kErr.Message,
			"status":  kErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if kErr.Code != errors.ErrInternal && kErr.Details != nil {
			errorObj["details"] = kErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
