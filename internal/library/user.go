package library

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// FolderLimit is the maximum number of folders a single user may own.
const FolderLimit = 100

// User is the cached per-user metadata record.
// Counters are denormalized from the user's Folder documents and kept in
// step with them by the ops package.
type User struct {
	// ID is the opaque external identity key
	ID string `json:"id"`

	// SecretID is a random identifier the user can later use to identify
	// themselves outside the chat front end
	SecretID string `json:"secret_id"`

	// DisplayName is informational only
	DisplayName string `json:"display_name"`

	// PhotoCount equals the sum of FolderSizes
	PhotoCount int `json:"photo_count"`

	// FolderCount equals len(Folders)
	FolderCount int `json:"folder_count"`

	// Folders holds folder names in creation order
	Folders []string `json:"folders"`

	// FolderSizes maps every entry of Folders to its photo count
	FolderSizes map[string]int `json:"folder_sizes"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// NewUser creates an empty record for a user seen for the first time.
func NewUser(id, displayName string) *User {
	now := time.Now().Unix()
	return &User{
		ID:          id,
		SecretID:    uuid.NewString(),
		DisplayName: displayName,
		Folders:     []string{},
		FolderSizes: make(map[string]int),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddFolder appends a new, empty folder. Returns false without mutating if
// the name is taken or the user is full; callers use UserIsFull to tell the
// two apart.
func (u *User) AddFolder(name string) bool {
	if u.HasFolder(name) || u.UserIsFull() {
		return false
	}
	if u.FolderSizes == nil {
		u.FolderSizes = make(map[string]int)
	}
	u.Folders = append(u.Folders, name)
	u.FolderSizes[name] = 0
	u.FolderCount = len(u.Folders)
	u.UpdatedAt = time.Now().Unix()
	return true
}

// DeleteFolder removes a folder from the list and size index.
// PhotoCount is left alone: the caller adjusts it by the size recorded in
// the durable folder document.
func (u *User) DeleteFolder(name string) bool {
	idx := slices.Index(u.Folders, name)
	if idx < 0 {
		return false
	}
	u.Folders = slices.Delete(u.Folders, idx, idx+1)
	delete(u.FolderSizes, name)
	u.FolderCount = len(u.Folders)
	u.UpdatedAt = time.Now().Unix()
	return true
}

// UpdatePhotoCount adds delta (which may be negative) to PhotoCount.
// No bound is enforced at this level.
func (u *User) UpdatePhotoCount(delta int) {
	u.PhotoCount += delta
	u.UpdatedAt = time.Now().Unix()
}

// UpdateFolderSize adds delta to the recorded size of name.
// Panics if name is not one of the user's folders.
func (u *User) UpdateFolderSize(name string, delta int) {
	size, ok := u.FolderSizes[name]
	if !ok {
		panic(fmt.Sprintf("library: UpdateFolderSize on unknown folder %q for user %q", name, u.ID))
	}
	u.FolderSizes[name] = size + delta
	u.UpdatedAt = time.Now().Unix()
}

// FolderIsEmpty reports whether name has no photos.
func (u *User) FolderIsEmpty(name string) bool {
	return u.FolderSizes[name] == 0
}

// UserIsFull reports whether the user is at FolderLimit.
func (u *User) UserIsFull() bool {
	return u.FolderCount >= FolderLimit
}

// HasFolder reports whether name is one of the user's folders.
func (u *User) HasFolder(name string) bool {
	_, ok := u.FolderSizes[name]
	return ok
}

// FolderSize returns the cached photo count of name.
func (u *User) FolderSize(name string) int {
	return u.FolderSizes[name]
}

// NonEmptyFolders returns the folders holding at least one photo, in list order.
func (u *User) NonEmptyFolders() []string {
	var names []string
	for _, name := range u.Folders {
		if u.FolderSizes[name] > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	c.Folders = slices.Clone(u.Folders)
	c.FolderSizes = make(map[string]int, len(u.FolderSizes))
	for k, v := range u.FolderSizes {
		c.FolderSizes[k] = v
	}
	return &c
}

// SumFolderSizes returns the total of the size index. With the record
// consistent it equals PhotoCount.
func (u *User) SumFolderSizes() int {
	total := 0
	for _, size := range u.FolderSizes {
		total += size
	}
	return total
}
