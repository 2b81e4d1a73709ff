package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// withUser adds the identity arguments every tool takes.
func withUser() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("Opaque identity of the library owner. Registered on first use."),
		),
		mcp.WithString("display_name",
			mcp.Description("Informational name stored when the user is first registered."),
		),
	}
}

func tool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	all := append([]mcp.ToolOption{mcp.WithDescription(description)}, withUser()...)
	return mcp.NewTool(name, append(all, opts...)...)
}

func folderArg(required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description("Folder name: 1-200 letters or digits.")}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithString("folder", opts...)
}

func photoArg() mcp.ToolOption {
	return mcp.WithString("photo", mcp.Required(), mcp.Description("Photo name: 1-200 letters or digits."))
}

var (
	folderCreateToolDef = tool("folder_create",
		"Create an empty folder. A user may own at most 100 folders.",
		folderArg(true))

	folderDeleteToolDef = tool("folder_delete",
		"Delete a folder and every photo in it.",
		folderArg(true))

	folderListToolDef = tool("folder_list",
		"List the user's folders in creation order with their photo counts.")

	photoUploadToolDef = tool("photo_upload",
		"Store a named photo reference in a folder. A folder holds at most 1000 photos; names are unique per folder.",
		folderArg(true),
		photoArg(),
		mcp.WithString("reference", mcp.Required(), mcp.Description("Opaque locator for the photo, e.g. an attachment URL.")),
	)

	photoDeleteToolDef = tool("photo_delete",
		"Remove a photo from a folder.",
		folderArg(true),
		photoArg())

	photoGetToolDef = tool("photo_get",
		"Return the reference stored under a photo name.",
		folderArg(true),
		photoArg())

	photoListToolDef = tool("photo_list",
		"List a folder's photos ordered by name.",
		folderArg(true))

	photoRandomToolDef = tool("photo_random",
		"Pick a photo uniformly at random from a folder, or from any non-empty folder when none is given.",
		folderArg(false))

	libraryStatsToolDef = tool("library_stats",
		"Totals of users, folders and photos across the service.")

	libraryExportToolDef = tool("library_export",
		"Export the user's library to a JSONL file.",
		mcp.WithString("path", mcp.Description("Destination .jsonl path. Defaults to the exports directory.")),
	)

	libraryImportToolDef = tool("library_import",
		"Import a JSONL library export into the user's library. Existing photo names are skipped.",
		mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl path.")),
	)

	libraryCheckToolDef = tool("library_check",
		"Audit the user's cached record against stored folders and report drift. Optionally repair it.",
		mcp.WithBoolean("repair", mcp.Description("Reconcile the library after auditing.")),
	)
)
