package db

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/models"
)

// ExportAll serializes the full entry set plus all daily mood rows
// into one versioned snapshot document.
func (r *Repository) ExportAll(ctx context.Context) (*models.Snapshot, error) {
	entries, err := r.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	moods, err := r.MoodHistory(ctx, 0)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		Version:    models.SnapshotVersion,
		ExportDate: time.Now().UTC().Format(time.RFC3339),
		Entries:    make([]models.EntryDocument, 0, len(entries)),
		DailyMoods: make([]models.DailyMood, 0, len(moods)),
	}
	for _, e := range entries {
		snap.Entries = append(snap.Entries, models.NewEntryDocument(e))
	}
	for _, m := range moods {
		snap.DailyMoods = append(snap.DailyMoods, *m)
	}
	return snap, nil
}

// ImportAll applies a snapshot inside a single all-or-nothing
// transaction and returns the number of entry rows actually written.
//
// Conflict resolution is last-writer-wins per entry id: an incoming
// entry overwrites an existing one only when its updatedAt is strictly
// newer. Incoming entries with a missing or unparseable updatedAt
// never overwrite existing data but do fill rows with no prior record.
// Daily moods are unconditionally upserted by date.
func (r *Repository) ImportAll(ctx context.Context, snap *models.Snapshot) (int, error) {
	if snap == nil {
		return 0, apperrors.New(apperrors.ErrValidation, "snapshot is required")
	}
	if snap.Version > models.SnapshotVersion {
		return 0, apperrors.New(apperrors.ErrValidation, "unsupported snapshot version")
	}

	written := 0
	err := WithTx(ctx, r.db.DB, func(ctx context.Context, tx DBTX) error {
		for i := range snap.Entries {
			doc := &snap.Entries[i]
			if doc.ID == "" {
				// An entry with no id cannot collide; skip rather
				// than invent identity during import.
				continue
			}
			wrote, err := importEntry(ctx, tx, doc)
			if err != nil {
				return err
			}
			if wrote {
				written++
			}
		}
		for i := range snap.DailyMoods {
			m := snap.DailyMoods[i]
			if m.Date == "" {
				continue
			}
			if m.Timestamp.IsZero() {
				m.Timestamp = time.Now()
			}
			if err := upsertDailyMood(ctx, tx, &m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrImport, "import rolled back", err)
	}
	return written, nil
}

func importEntry(ctx context.Context, tx DBTX, doc *models.EntryDocument) (bool, error) {
	incoming := doc.ToEntry()
	incomingUpdated, hasUpdated := models.ParseTimestamp(doc.UpdatedAt)

	var existingUpdated int64
	err := tx.QueryRowContext(ctx,
		`SELECT updated_at FROM entries WHERE id = ?`, incoming.ID).Scan(&existingUpdated)
	switch {
	case err == sql.ErrNoRows:
		now := time.Now()
		if incoming.CreatedAt.IsZero() {
			incoming.CreatedAt = now
		}
		if incoming.UpdatedAt.IsZero() || incoming.UpdatedAt.Before(incoming.CreatedAt) {
			incoming.UpdatedAt = incoming.CreatedAt
		}
		if err := insertEntry(ctx, tx, incoming); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, apperrors.Wrap(apperrors.ErrStorage, "failed to read existing entry", err)
	}

	if !hasUpdated {
		return false, nil
	}
	if !incomingUpdated.After(time.UnixMilli(existingUpdated)) {
		return false, nil
	}
	if err := updateEntry(ctx, tx, incoming); err != nil {
		return false, err
	}
	return true, nil
}

// ClearAll deletes every entry and mood row, preserving only the
// schema-version metadata.
func (r *Repository) ClearAll(ctx context.Context) error {
	err := WithTx(ctx, r.db.DB, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_moods`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM metadata WHERE key != ?`, SchemaVersionKey)
		return err
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to clear store", err)
	}
	return nil
}

// StorageInfo summarizes the state of the structured store.
type StorageInfo struct {
	EntryCount       int   `json:"entryCount"`
	DatabaseBytes    int64 `json:"databaseBytes"`
	InlineAudioCount int   `json:"inlineAudioCount"`
	InlineAudioBytes int64 `json:"inlineAudioBytes"`
}

var inlineAudioRe = regexp.MustCompile(`data:audio/[a-zA-Z0-9.+-]+;base64,([A-Za-z0-9+/=]+)`)

// GetStorageInfo returns entry count, on-disk store size, and a
// best-effort estimate of audio payloads still inline in entry
// content. Encrypted content cannot be scanned and is skipped;
// payloads already extracted to the mirror do not appear here.
func (r *Repository) GetStorageInfo(ctx context.Context) (*StorageInfo, error) {
	info := &StorageInfo{DatabaseBytes: r.db.SizeBytes()}

	count, err := r.CountEntries(ctx)
	if err != nil {
		return nil, err
	}
	info.EntryCount = count

	rows, err := r.db.QueryContext(ctx,
		`SELECT content FROM entries WHERE content_encrypted = 0 AND content LIKE '%data:audio%'`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan inline audio", err)
	}
	defer rows.Close()

	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan inline audio", err)
		}
		for _, m := range inlineAudioRe.FindAllStringSubmatch(content, -1) {
			info.InlineAudioCount++
			// base64 expands payloads by 4/3.
			info.InlineAudioBytes += int64(len(m[1])) * 3 / 4
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan inline audio", err)
	}
	return info, nil
}
