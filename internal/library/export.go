package library

// ExportSchemaVersion is written in the header line of every export file.
const ExportSchemaVersion = "1.0"

// ExportRecord represents one line of a JSONL library export.
// The first line is a header (PhotoKeepExport set); every following line
// carries one folder with its photos.
type ExportRecord struct {
	// Header detection field - true only for header line
	PhotoKeepExport bool `json:"_photokeep_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`
	UserID        string `json:"user_id,omitempty"`

	// Folder fields
	Folder     string            `json:"folder,omitempty"`
	PhotoCount int               `json:"photo_count,omitempty"` // IGNORED on import, recomputed
	Photos     map[string]string `json:"photos,omitempty"`
	CreatedAt  int64             `json:"created_at,omitempty"`
}

// FolderToExportRecord converts a Folder to an ExportRecord.
func FolderToExportRecord(f *Folder) *ExportRecord {
	return &ExportRecord{
		Folder:     f.Name,
		PhotoCount: f.PhotoCount,
		Photos:     f.Photos,
		CreatedAt:  f.CreatedAt,
	}
}
