package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/models"
)

// Repository provides CRUD operations over the record store tables.
// All reads return entries ordered by created_at descending.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository bound to the store.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `id, name, content, content_encrypted, mood, tags, favorite,
	word_count, font_family, font_size, created_at, updated_at, audio_files`

// CreateEntry persists a new entry. A missing id is generated and
// missing timestamps are set to now; created_at is immutable after
// this point.
func (r *Repository) CreateEntry(ctx context.Context, e *models.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() || e.UpdatedAt.Before(e.CreatedAt) {
		e.UpdatedAt = e.CreatedAt
	}
	e.Tags = models.NormalizeTags(e.Tags)

	return insertEntry(ctx, r.db, e)
}

func insertEntry(ctx context.Context, q DBTX, e *models.Entry) error {
	tags, audio, err := encodeEntryLists(e)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Content, e.ContentEncrypted, e.Mood, tags, e.Favorite,
		e.WordCount, e.FontFamily, e.FontSize,
		e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli(), audio)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to insert entry", err)
	}
	return nil
}

// GetEntry retrieves a single entry by id.
func (r *Repository) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	return getEntry(ctx, r.db, id)
}

func getEntry(ctx context.Context, q DBTX, id string) (*models.Entry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrNotFound, "entry not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read entry", err)
	}
	return e, nil
}

// ListEntries returns all entries, newest first.
func (r *Repository) ListEntries(ctx context.Context) ([]*models.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list entries", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list entries", err)
	}
	return entries, nil
}

// UpdateEntry overwrites a stored entry's mutable columns. The caller
// has already merged partial fields; created_at is never touched.
func (r *Repository) UpdateEntry(ctx context.Context, e *models.Entry) error {
	return updateEntry(ctx, r.db, e)
}

func updateEntry(ctx context.Context, q DBTX, e *models.Entry) error {
	tags, audio, err := encodeEntryLists(e)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE entries
		SET name = ?, content = ?, content_encrypted = ?, mood = ?, tags = ?,
			favorite = ?, word_count = ?, font_family = ?, font_size = ?,
			updated_at = ?, audio_files = ?
		WHERE id = ?`,
		e.Name, e.Content, e.ContentEncrypted, e.Mood, tags,
		e.Favorite, e.WordCount, e.FontFamily, e.FontSize,
		e.UpdatedAt.UnixMilli(), audio, e.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to update entry", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.New(apperrors.ErrNotFound, "entry not found")
	}
	return nil
}

// DeleteEntry removes an entry and reports whether a row was removed.
// Deleting a missing id is not an error.
func (r *Repository) DeleteEntry(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorage, "failed to delete entry", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CountEntries returns the number of stored entries.
func (r *Repository) CountEntries(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to count entries", err)
	}
	return n, nil
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (r *Repository) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	now := time.Now().UnixMilli()
	res, err := r.db.ExecContext(ctx,
		`UPDATE entries SET favorite = NOT favorite, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorage, "failed to toggle favorite", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, apperrors.New(apperrors.ErrNotFound, "entry not found")
	}

	var fav bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT favorite FROM entries WHERE id = ?`, id).Scan(&fav); err != nil {
		return false, apperrors.Wrap(apperrors.ErrStorage, "failed to read favorite", err)
	}
	return fav, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var e models.Entry
	var tags, audio string
	var created, updated int64
	err := row.Scan(&e.ID, &e.Name, &e.Content, &e.ContentEncrypted, &e.Mood, &tags,
		&e.Favorite, &e.WordCount, &e.FontFamily, &e.FontSize, &created, &updated, &audio)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = time.UnixMilli(created)
	e.UpdatedAt = time.UnixMilli(updated)
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(audio), &e.AudioFiles); err != nil {
		return nil, err
	}
	return &e, nil
}

func encodeEntryLists(e *models.Entry) (tags string, audio string, err error) {
	t := e.Tags
	if t == nil {
		t = []string{}
	}
	a := e.AudioFiles
	if a == nil {
		a = []models.AudioFile{}
	}
	tb, err := json.Marshal(t)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.ErrInternal, "failed to encode tags", err)
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.ErrInternal, "failed to encode audio files", err)
	}
	return string(tb), string(ab), nil
}
