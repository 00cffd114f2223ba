// Package db provides the structured record store for journal
// entries, metadata and daily moods, backed by SQLite.
package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	apperrors "github.com/simnote/core/internal/errors"
)

// DBFileName is the structured store file under the storage root.
const DBFileName = "simnote.db"

// DB wraps sql.DB with the store file location.
type DB struct {
	*sql.DB
	path string
}

// Open opens the SQLite store under dataDir, creating the directory
// and schema as needed. The store is configured for a single writer
// with WAL journaling and foreign keys on.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrConfiguration, "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)
	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to open database", err)
	}

	// SQLite supports one writer; keep a single connection.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	if _, err := sqldb.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		sqldb.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to enable WAL mode", err)
	}
	if _, err := sqldb.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		sqldb.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to enable foreign keys", err)
	}

	db := &DB{DB: sqldb, path: dbPath}
	if err := db.Migrate(); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the on-disk location of the store file.
func (db *DB) Path() string {
	return db.path
}

// SizeBytes returns the current size of the store file on disk.
func (db *DB) SizeBytes() int64 {
	info, err := os.Stat(db.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
