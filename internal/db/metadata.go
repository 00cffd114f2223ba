package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/models"
)

// GetMetadata returns the JSON value stored under key.
func (r *Repository) GetMetadata(ctx context.Context, key string) (json.RawMessage, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrNotFound, "metadata key not found")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read metadata", err)
	}
	return json.RawMessage(raw), nil
}

// SetMetadata upserts a JSON value under key.
func (r *Repository) SetMetadata(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return apperrors.New(apperrors.ErrValidation, "metadata key is required")
	}
	if !json.Valid(value) {
		return apperrors.New(apperrors.ErrValidation, "metadata value is not valid JSON")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(value))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to write metadata", err)
	}
	return nil
}

// SetDailyMood upserts the mood for a calendar day; the latest write
// for a day wins.
func (r *Repository) SetDailyMood(ctx context.Context, m *models.DailyMood) error {
	if m.Date == "" {
		return apperrors.New(apperrors.ErrValidation, "mood date is required")
	}
	if _, err := time.Parse(models.DateLayout, m.Date); err != nil {
		return apperrors.New(apperrors.ErrValidation, "mood date must be YYYY-MM-DD")
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return upsertDailyMood(ctx, r.db, m)
}

func upsertDailyMood(ctx context.Context, q DBTX, m *models.DailyMood) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO daily_moods (date, mood, timestamp) VALUES (?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET mood = excluded.mood, timestamp = excluded.timestamp`,
		m.Date, m.Mood, m.Timestamp.UnixMilli())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to write daily mood", err)
	}
	return nil
}

// GetDailyMood returns the mood recorded for a calendar day.
func (r *Repository) GetDailyMood(ctx context.Context, date string) (*models.DailyMood, error) {
	var m models.DailyMood
	var ts int64
	err := r.db.QueryRowContext(ctx,
		`SELECT date, mood, timestamp FROM daily_moods WHERE date = ?`, date).
		Scan(&m.Date, &m.Mood, &ts)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrNotFound, "no mood recorded for date")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read daily mood", err)
	}
	m.Timestamp = time.UnixMilli(ts)
	return &m, nil
}

// MoodHistory returns recorded moods, newest day first. A limit of 0
// returns the full history.
func (r *Repository) MoodHistory(ctx context.Context, limit int) ([]*models.DailyMood, error) {
	query := `SELECT date, mood, timestamp FROM daily_moods ORDER BY date DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read mood history", err)
	}
	defer rows.Close()

	var moods []*models.DailyMood
	for rows.Next() {
		var m models.DailyMood
		var ts int64
		if err := rows.Scan(&m.Date, &m.Mood, &ts); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to scan daily mood", err)
		}
		m.Timestamp = time.UnixMilli(ts)
		moods = append(moods, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to read mood history", err)
	}
	return moods, nil
}
