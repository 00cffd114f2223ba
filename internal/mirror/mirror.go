package mirror

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/fsutil"
	"github.com/simnote/core/internal/logging"
	"github.com/simnote/core/internal/models"
)

// Mirror maintains one JSON document per entry under the storage
// root. It holds no independent source of truth: the mirror is always
// re-derivable from the record store's current entry set.
type Mirror struct {
	root string
	log  *logging.Logger
}

// New creates the mirror directories under root.
func New(root string, log *logging.Logger) (*Mirror, error) {
	if log == nil {
		log = logging.Get()
	}
	for _, d := range []string{entriesDirName, assetsDirName} {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfiguration, "failed to create mirror directory", err)
		}
	}
	return &Mirror{root: root, log: log}, nil
}

// FileName derives the deterministic mirror filename for an entry:
// a sanitized, bounded form of the name plus the id, so re-saves
// overwrite instead of accumulating duplicates.
func FileName(e *models.Entry) string {
	return sanitizeName(e.Name) + "-" + e.ID + ".json"
}

// Write mirrors one entry atomically. Audio extraction has already
// happened by the time an entry reaches the mirror.
func (m *Mirror) Write(e *models.Entry) error {
	if !safeID(e.ID) {
		return apperrors.New(apperrors.ErrStorage, "unsafe entry id")
	}

	doc := models.MirrorDocument{
		SimnoteVersion: models.SimnoteVersion,
		EntryDocument:  models.NewEntryDocument(e),
		ExportedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode mirror document", err)
	}

	path := filepath.Join(m.root, entriesDirName, FileName(e))
	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to write mirror file", err)
	}
	return nil
}

// Remove deletes the mirrored file(s) for an entry id and, when
// removeAssets is set, the entry's entire asset subdirectory. The
// match is by id suffix since the entry name may have changed.
func (m *Mirror) Remove(id string, removeAssets bool) error {
	if !safeID(id) {
		return apperrors.New(apperrors.ErrStorage, "unsafe entry id")
	}

	dir := filepath.Join(m.root, entriesDirName)
	names, err := mirrorFilesFor(dir, id)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return apperrors.Wrap(apperrors.ErrStorage, "failed to remove mirror file", err)
		}
	}

	if removeAssets {
		if err := os.RemoveAll(filepath.Join(m.root, assetsDirName, id)); err != nil {
			return apperrors.Wrap(apperrors.ErrStorage, "failed to remove asset directory", err)
		}
	}
	return nil
}

// Resync rewrites the mirror for the given entry set and removes
// stale mirror files and asset directories whose ids are no longer
// present. Per-entry write failures are collected and reported after
// the pass completes rather than aborting it.
func (m *Mirror) Resync(entries []*models.Entry) error {
	expected := make(map[string]bool, len(entries))
	ids := make(map[string]bool, len(entries))
	var firstErr error

	for _, e := range entries {
		if err := m.Write(e); err != nil {
			m.log.Error("mirror write failed during resync", err,
				map[string]interface{}{"entry_id": e.ID})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		expected[FileName(e)] = true
		ids[e.ID] = true
	}

	dir := filepath.Join(m.root, entriesDirName)
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to list mirror directory", err)
	}
	for _, d := range dirents {
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			continue
		}
		if expected[d.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, d.Name())); err != nil && !os.IsNotExist(err) {
			m.log.Error("failed to remove stale mirror file", err,
				map[string]interface{}{"file": d.Name()})
		}
	}

	assetDir := filepath.Join(m.root, assetsDirName)
	assetEnts, err := os.ReadDir(assetDir)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, "failed to list asset directory", err)
	}
	for _, d := range assetEnts {
		if !d.IsDir() || ids[d.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(assetDir, d.Name())); err != nil {
			m.log.Error("failed to remove stale asset directory", err,
				map[string]interface{}{"entry_id": d.Name()})
		}
	}

	return firstErr
}

// mirrorFilesFor lists mirror filenames belonging to an entry id.
func mirrorFilesFor(dir, id string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrStorage, "failed to list mirror directory", err)
	}
	suffix := "-" + id + ".json"
	var names []string
	for _, d := range dirents {
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			names = append(names, d.Name())
		}
	}
	return names, nil
}
