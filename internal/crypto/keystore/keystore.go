// Package keystore provides protected storage for small key blobs.
// The default implementation keeps owner-only files under the storage
// root; platform keychain integrations satisfy the same interface.
// The store fails closed: if the backing facility is unavailable every
// operation errors instead of degrading to unprotected storage.
package keystore

import (
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/simnote/core/internal/errors"
)

// Store is an opaque get/set/delete-by-name facility for small binary
// blobs, assumed readable only by the current OS user.
type Store interface {
	Get(name string) ([]byte, error)
	Set(name string, value []byte) error
	Delete(name string) error
}

// FileStore keeps blobs as owner-only files under a secure directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the secure directory and returns a store bound
// to it. A directory that cannot be created is a hard failure.
func NewFileStore(baseDir string) (*FileStore, error) {
	dir := filepath.Join(baseDir, "secure")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, "protected storage unavailable", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get retrieves a stored blob. A missing blob is reported as not found.
func (s *FileStore) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.New(apperrors.ErrNotFound, "key material not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, "protected storage read failed", err)
	}
	return data, nil
}

// Set stores a blob with owner-only permissions.
func (s *FileStore) Set(name string, value []byte) error {
	if err := os.WriteFile(s.path(name), value, 0600); err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, "protected storage write failed", err)
	}
	return nil
}

// Delete removes a blob. Deleting a missing blob is not an error.
func (s *FileStore) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(apperrors.ErrUnavailable, "protected storage delete failed", err)
	}
	return nil
}

func (s *FileStore) path(name string) string {
	safe := strings.ReplaceAll(name, "/", "_")
	safe = strings.ReplaceAll(safe, "\\", "_")
	safe = strings.ReplaceAll(safe, "..", "_")
	return filepath.Join(s.dir, safe+".blob")
}
