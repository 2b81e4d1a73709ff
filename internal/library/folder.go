package library

import (
	"sort"
	"time"
)

// PhotoLimit is the maximum number of photos a single folder may hold.
const PhotoLimit = 1000

// folderIDSeparator joins user ID and folder name. Valid names never contain it,
// so the last occurrence always splits the composite key correctly.
const folderIDSeparator = "/"

// Folder is the durable document holding one folder's name -> reference mapping.
type Folder struct {
	// ID is FolderID(UserID, Name)
	ID string `json:"id"`

	// UserID is the owning user's identity
	UserID string `json:"user_id"`

	// Name matches exactly one entry in the owner's Folders list
	Name string `json:"name"`

	// PhotoCount always equals len(Photos)
	PhotoCount int `json:"photo_count"`

	// Photos maps photo name to an opaque reference (e.g. a retrieval URL)
	Photos map[string]string `json:"photos"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// FolderID returns the deterministic document key for a user's folder.
func FolderID(userID, name string) string {
	return userID + folderIDSeparator + name
}

// NewFolder creates an empty folder entry for userID.
func NewFolder(userID, name string) *Folder {
	now := time.Now().Unix()
	return &Folder{
		ID:        FolderID(userID, name),
		UserID:    userID,
		Name:      name,
		Photos:    make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// InsertPhoto adds a photo. Returns false without mutating if the name is
// already used or the folder is full.
func (f *Folder) InsertPhoto(name, reference string) bool {
	if f.Photos == nil {
		f.Photos = make(map[string]string)
	}
	if _, ok := f.Photos[name]; ok || f.FolderIsFull() {
		return false
	}
	f.Photos[name] = reference
	f.PhotoCount++
	f.UpdatedAt = time.Now().Unix()
	return true
}

// DeletePhoto removes a photo. Returns false if it was not present.
func (f *Folder) DeletePhoto(name string) bool {
	if _, ok := f.Photos[name]; !ok {
		return false
	}
	delete(f.Photos, name)
	f.PhotoCount--
	f.UpdatedAt = time.Now().Unix()
	return true
}

// FolderIsFull reports whether the folder is at PhotoLimit.
func (f *Folder) FolderIsFull() bool {
	return f.PhotoCount >= PhotoLimit
}

// Photo returns the reference stored under name.
func (f *Folder) Photo(name string) (string, bool) {
	ref, ok := f.Photos[name]
	return ref, ok
}

// PhotoNames returns the photo names in sorted order.
func (f *Folder) PhotoNames() []string {
	names := make([]string, 0, len(f.Photos))
	for name := range f.Photos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
