package models

import "time"

// SnapshotVersion is the interchange format version written by export.
const SnapshotVersion = 1

// SimnoteVersion is the application version stamped into mirrored
// entry documents.
const SimnoteVersion = "1.0"

// EntryDocument is the wire form of an Entry used by the snapshot and
// mirror formats. Timestamps travel as RFC 3339 strings so that a
// malformed or missing timestamp in an imported document can be
// detected and handled instead of failing the whole decode.
type EntryDocument struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Content          string      `json:"content"`
	ContentEncrypted bool        `json:"contentEncrypted,omitempty"`
	Mood             string      `json:"mood,omitempty"`
	Tags             []string    `json:"tags,omitempty"`
	Favorite         bool        `json:"favorite"`
	WordCount        int         `json:"wordCount"`
	FontFamily       string      `json:"fontFamily,omitempty"`
	FontSize         string      `json:"fontSize,omitempty"`
	CreatedAt        string      `json:"createdAt"`
	UpdatedAt        string      `json:"updatedAt"`
	AudioFiles       []AudioFile `json:"audioFiles,omitempty"`
}

// Snapshot is the versioned export/import interchange document.
type Snapshot struct {
	Version    int             `json:"version"`
	ExportDate string          `json:"exportDate"`
	Entries    []EntryDocument `json:"entries"`
	DailyMoods []DailyMood     `json:"dailyMoods"`
}

// MirrorDocument is the human-readable file-per-entry mirror format.
type MirrorDocument struct {
	SimnoteVersion string `json:"simnoteVersion"`
	EntryDocument
	ExportedAt string `json:"exportedAt"`
}

// NewEntryDocument converts a stored Entry into its wire form.
func NewEntryDocument(e *Entry) EntryDocument {
	return EntryDocument{
		ID:               e.ID,
		Name:             e.Name,
		Content:          e.Content,
		ContentEncrypted: e.ContentEncrypted,
		Mood:             e.Mood,
		Tags:             append([]string(nil), e.Tags...),
		Favorite:         e.Favorite,
		WordCount:        e.WordCount,
		FontFamily:       e.FontFamily,
		FontSize:         e.FontSize,
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        e.UpdatedAt.UTC().Format(time.RFC3339Nano),
		AudioFiles:       append([]AudioFile(nil), e.AudioFiles...),
	}
}

// ParseTimestamp parses a wire timestamp. The second return value is
// false when the value is absent or unparseable.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ToEntry converts the wire form back into an Entry. Timestamps that
// fail to parse come back as zero times; the caller decides how a
// missing timestamp is treated (see import conflict resolution).
func (d *EntryDocument) ToEntry() *Entry {
	created, _ := ParseTimestamp(d.CreatedAt)
	updated, _ := ParseTimestamp(d.UpdatedAt)
	return &Entry{
		ID:               d.ID,
		Name:             d.Name,
		Content:          d.Content,
		ContentEncrypted: d.ContentEncrypted,
		Mood:             d.Mood,
		Tags:             NormalizeTags(d.Tags),
		Favorite:         d.Favorite,
		WordCount:        d.WordCount,
		FontFamily:       d.FontFamily,
		FontSize:         d.FontSize,
		CreatedAt:        created,
		UpdatedAt:        updated,
		AudioFiles:       append([]AudioFile(nil), d.AudioFiles...),
	}
}
