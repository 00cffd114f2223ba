// Package models provides data model definitions for the simnote core.
package models

import (
	"strings"
	"time"
)

// Tag bounds enforced on every save and update.
const (
	MaxTags   = 20
	MaxTagLen = 64
)

// AudioFile references an extracted audio asset on disk.
// Path is always relative to the storage root and scoped to the
// owning entry's asset subdirectory.
type AudioFile struct {
	Path       string `db:"path" json:"path"`
	MimeType   string `db:"mime_type" json:"mimeType"`
	ByteLength int64  `db:"byte_length" json:"byteLength"`
}

// Entry represents a single journal entry.
//
// Content may hold rich text with inline audio payloads before asset
// extraction; after extraction the payloads are replaced by relative
// asset paths listed in AudioFiles. When encryption at rest is enabled
// Content holds the ciphertext blob and ContentEncrypted is true; all
// other fields remain plaintext metadata.
type Entry struct {
	ID               string      `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	Content          string      `db:"content" json:"content"`
	ContentEncrypted bool        `db:"content_encrypted" json:"contentEncrypted,omitempty"`
	Mood             string      `db:"mood" json:"mood,omitempty"`
	Tags             []string    `db:"tags" json:"tags"`
	Favorite         bool        `db:"favorite" json:"favorite"`
	WordCount        int         `db:"word_count" json:"wordCount"`
	FontFamily       string      `db:"font_family" json:"fontFamily,omitempty"`
	FontSize         string      `db:"font_size" json:"fontSize,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updatedAt"`
	AudioFiles       []AudioFile `db:"audio_files" json:"audioFiles,omitempty"`
}

// TableName returns the table name for Entry.
func (Entry) TableName() string {
	return "entries"
}

// Touch updates the UpdatedAt timestamp.
func (e *Entry) Touch() {
	e.UpdatedAt = time.Now()
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	if e.AudioFiles != nil {
		c.AudioFiles = append([]AudioFile(nil), e.AudioFiles...)
	}
	return &c
}

// NormalizeTags trims, de-duplicates and bounds a tag list, preserving
// first-seen order. Tags longer than MaxTagLen are truncated; at most
// MaxTags survive.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len(t) > MaxTagLen {
			t = t[:MaxTagLen]
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// EntryPatch is a partial update for an entry. Nil fields are carried
// over from the stored record; CreatedAt is immutable and therefore
// absent here.
type EntryPatch struct {
	ID         string    `json:"id"`
	Name       *string   `json:"name,omitempty"`
	Content    *string   `json:"content,omitempty"`
	Mood       *string   `json:"mood,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	Favorite   *bool     `json:"favorite,omitempty"`
	FontFamily *string   `json:"fontFamily,omitempty"`
	FontSize   *string   `json:"fontSize,omitempty"`
}
