package db

import (
	"database/sql"
	"fmt"
	"strconv"

	apperrors "github.com/simnote/core/internal/errors"
)

// SchemaVersionKey is the metadata key holding the applied schema
// version. It survives ClearAll.
const SchemaVersionKey = "schemaVersion"

type migration struct {
	version     int
	description string
	statements  []string
}

// Migrations are applied in order inside one transaction each. The
// applied version is recorded in the metadata table.
var migrations = []migration{
	{
		version:     1,
		description: "initial schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS entries (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				content TEXT NOT NULL DEFAULT '',
				content_encrypted INTEGER NOT NULL DEFAULT 0,
				mood TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '[]',
				favorite INTEGER NOT NULL DEFAULT 0,
				word_count INTEGER NOT NULL DEFAULT 0,
				font_family TEXT NOT NULL DEFAULT '',
				font_size TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				audio_files TEXT NOT NULL DEFAULT '[]'
			);`,
			`CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at DESC);`,
			`CREATE TABLE IF NOT EXISTS daily_moods (
				date TEXT PRIMARY KEY,
				mood TEXT NOT NULL,
				timestamp INTEGER NOT NULL
			);`,
		},
	},
}

// Migrate brings the schema up to the latest version. The metadata
// table itself is created unconditionally since it records the
// version.
func (db *DB) Migrate() error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to create metadata table", err)
	}

	current, err := db.schemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := db.applyMigration(m); err != nil {
			return apperrors.Wrap(apperrors.ErrStorage,
				fmt.Sprintf("failed to apply schema migration %d (%s)", m.version, m.description), err)
		}
	}
	return nil
}

func (db *DB) schemaVersion() (int, error) {
	var raw string
	err := db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, SchemaVersionKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to read schema version", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "corrupt schema version", err)
	}
	return v, nil
}

func (db *DB) applyMigration(m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		SchemaVersionKey, strconv.Itoa(m.version)); err != nil {
		return err
	}
	return tx.Commit()
}
