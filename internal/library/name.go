package library

import (
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the maximum number of characters in a folder or photo name.
const MaxNameLength = 200

// IsValidName reports whether name can be used as a folder or photo key:
// non-empty, at most MaxNameLength characters, letters and digits only.
// User identities are opaque and are never checked with this.
func IsValidName(name string) bool {
	if name == "" || !utf8.ValidString(name) {
		return false
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
