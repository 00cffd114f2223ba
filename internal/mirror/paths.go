// Package mirror maintains the human-readable file-per-entry mirror
// of the record store and extracts inline audio payloads into an
// asset tree.
package mirror

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	entriesDirName = "entries"
	assetsDirName  = "assets"

	// maxNameLen bounds the sanitized entry-name part of a mirror
	// filename.
	maxNameLen = 40
)

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9 _-]+`)
var spaceRunRe = regexp.MustCompile(`[\s_]+`)

// sanitizeName reduces an entry name to a filesystem-safe slug.
func sanitizeName(name string) string {
	s := unsafeNameRe.ReplaceAllString(name, "")
	s = spaceRunRe.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.Trim(s, "-")
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
		s = strings.Trim(s, "-")
	}
	if s == "" {
		return "entry"
	}
	return s
}

// safeID reports whether an entry id can be used as a path segment.
func safeID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// safeAssetPath reports whether rel is a relative asset path confined
// to the given entry's own asset subdirectory. Parent-directory
// traversal and absolute or drive-rooted segments are rejected.
func safeAssetPath(rel, entryID string) bool {
	if rel == "" || !safeID(entryID) {
		return false
	}
	if strings.Contains(rel, "\\") {
		return false
	}
	if filepath.IsAbs(rel) || strings.Contains(rel, ":") {
		return false
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return false
	}
	prefix := filepath.Join(assetsDirName, entryID) + string(filepath.Separator)
	return strings.HasPrefix(clean, prefix)
}
