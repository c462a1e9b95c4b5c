package util

import (
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeStorageFilename maps a caller-supplied filename onto the character
// set allowed in storage keys. Anything outside [A-Za-z0-9._-] is replaced
// with an underscore, which also neutralizes path separators. Names that end
// up empty or dots-only fall back to a fixed placeholder.
func SanitizeStorageFilename(name string) string {
	s := strings.TrimSpace(name)
	s = unsafeChars.ReplaceAllString(s, "_")
	if s == "" || strings.Trim(s, ".") == "" {
		return "document"
	}
	return s
}
