// Package journal wires the record store, file mirror and security
// engine into the operations exposed to callers, keeping the two
// persistence representations consistent and gating everything behind
// the unlocked state when encryption is enabled.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/simnote/core/internal/crypto"
	"github.com/simnote/core/internal/crypto/keystore"
	"github.com/simnote/core/internal/db"
	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/logging"
	"github.com/simnote/core/internal/mirror"
	"github.com/simnote/core/internal/models"
	"github.com/simnote/core/internal/security"
	"github.com/simnote/core/internal/textutil"
)

// Service is the reconciliation orchestrator. It is constructed once
// at startup, in dependency order, and passed by handle to every
// caller.
type Service struct {
	store    *db.DB
	repo     *db.Repository
	sec      *security.Manager
	mirror   *mirror.Mirror
	log      *logging.Logger
	autoLock int
}

// Options configures service construction.
type Options struct {
	// DataDir is the storage root for the structured store, mirror
	// tree and protected key material.
	DataDir string

	// Biometric is the optional platform biometric facility.
	Biometric security.Biometric

	// AutoLockMinutes is the idle window applied the first time
	// security is enabled. Zero leaves auto-lock off.
	AutoLockMinutes int

	// Logger defaults to the global logger.
	Logger *logging.Logger
}

// New constructs the service with explicit, ordered initialization:
// record store, then key engine, then mirror. A storage directory
// that cannot be created fails construction instead of deferring the
// failure to first use.
func New(opts Options) (*Service, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Get()
	}

	store, err := db.Open(opts.DataDir)
	if err != nil {
		return nil, err
	}

	ks, err := keystore.NewFileStore(opts.DataDir)
	if err != nil {
		store.Close()
		return nil, err
	}
	sec, err := security.NewManager(opts.DataDir, ks, opts.Biometric, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	mir, err := mirror.New(opts.DataDir, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Service{
		store:    store,
		repo:     db.NewRepository(store),
		sec:      sec,
		mirror:   mir,
		log:      log,
		autoLock: opts.AutoLockMinutes,
	}, nil
}

// Close releases the underlying store.
func (s *Service) Close() error {
	s.sec.Lock()
	return s.store.Close()
}

// requireUnlocked gates record-store-affecting operations. With
// security disabled it always passes.
func (s *Service) requireUnlocked() error {
	if s.sec.IsSecurityEnabled() && !s.sec.IsUnlocked() {
		return apperrors.New(apperrors.ErrLocked, "journal is locked")
	}
	return nil
}

// sealContent encrypts plaintext content under the master key when
// security is enabled; otherwise it passes through.
func (s *Service) sealContent(plain string) (string, bool, error) {
	if !s.sec.IsSecurityEnabled() {
		return plain, false, nil
	}
	var blob string
	err := s.sec.WithKey(func(key []byte) error {
		var err error
		blob, err = crypto.Encrypt([]byte(plain), key)
		return err
	})
	if err != nil {
		return "", false, err
	}
	return blob, true, nil
}

// openContent decrypts an entry's content in place when it is stored
// encrypted. Fails with a locked error while the master key is not
// held.
func (s *Service) openContent(e *models.Entry) error {
	if !e.ContentEncrypted {
		return nil
	}
	return s.sec.WithKey(func(key []byte) error {
		plain, err := crypto.Decrypt(e.Content, key)
		if err != nil {
			return err
		}
		e.Content = string(plain)
		e.ContentEncrypted = false
		return nil
	})
}

// mergeAudioFiles combines carried-over and freshly extracted asset
// references, keeping the first reference to each path.
func mergeAudioFiles(kept, extracted []models.AudioFile) []models.AudioFile {
	seen := make(map[string]bool, len(kept)+len(extracted))
	var out []models.AudioFile
	for _, f := range append(kept, extracted...) {
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		out = append(out, f)
	}
	return out
}

// SaveEntry persists a new entry and mirrors it. Inline audio
// payloads are extracted to the asset tree before the content is
// sealed, and the word count is computed from the markup-stripped
// plaintext.
func (s *Service) SaveEntry(ctx context.Context, draft *models.Entry) (*models.Entry, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}

	e := draft.Clone()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	content, extracted, err := s.mirror.ExtractAudio(e.Content, e.ID)
	if err != nil {
		return nil, err
	}
	e.AudioFiles = mergeAudioFiles(s.mirror.SanitizeAudioFiles(e.AudioFiles, e.ID), extracted)
	e.WordCount = textutil.CountWords(content)
	e.Tags = models.NormalizeTags(e.Tags)

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	e.Content, e.ContentEncrypted, err = s.sealContent(content)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateEntry(ctx, e); err != nil {
		return nil, err
	}
	if err := s.mirror.Write(e); err != nil {
		return nil, err
	}

	s.sec.Touch()
	return e, nil
}

// UpdateEntry applies a partial update. Missing fields carry over
// from the stored record; content presence triggers audio extraction
// and word-count recomputation; createdAt never changes.
func (s *Service) UpdateEntry(ctx context.Context, patch *models.EntryPatch) (*models.Entry, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	if patch.ID == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "entry id is required")
	}

	existing, err := s.repo.GetEntry(ctx, patch.ID)
	if err != nil {
		return nil, err
	}

	e := existing.Clone()
	if patch.Name != nil {
		e.Name = *patch.Name
	}
	if patch.Mood != nil {
		e.Mood = *patch.Mood
	}
	if patch.Tags != nil {
		e.Tags = models.NormalizeTags(*patch.Tags)
	}
	if patch.Favorite != nil {
		e.Favorite = *patch.Favorite
	}
	if patch.FontFamily != nil {
		e.FontFamily = *patch.FontFamily
	}
	if patch.FontSize != nil {
		e.FontSize = *patch.FontSize
	}
	if patch.Content != nil {
		content, extracted, err := s.mirror.ExtractAudio(*patch.Content, e.ID)
		if err != nil {
			return nil, err
		}
		e.AudioFiles = mergeAudioFiles(s.mirror.SanitizeAudioFiles(e.AudioFiles, e.ID), extracted)
		e.WordCount = textutil.CountWords(content)
		e.Content, e.ContentEncrypted, err = s.sealContent(content)
		if err != nil {
			return nil, err
		}
	}
	e.UpdatedAt = time.Now()

	if err := s.repo.UpdateEntry(ctx, e); err != nil {
		return nil, err
	}

	// The mirror filename tracks the entry name; drop the old file
	// before writing so a rename does not accumulate duplicates.
	if err := s.mirror.Remove(e.ID, false); err != nil {
		return nil, err
	}
	if err := s.mirror.Write(e); err != nil {
		return nil, err
	}

	s.sec.Touch()
	return e, nil
}

// GetEntry returns one entry with its content opened. Fails with a
// locked error when the content is sealed and the journal is locked.
func (s *Service) GetEntry(ctx context.Context, id string) (*models.Entry, error) {
	e, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.openContent(e); err != nil {
		return nil, err
	}
	s.sec.Touch()
	return e, nil
}

// ListEntries returns all entries, newest first, without opening
// sealed content: the metadata list stays readable while locked.
func (s *Service) ListEntries(ctx context.Context) ([]*models.Entry, error) {
	return s.repo.ListEntries(ctx)
}

// CountEntries returns the number of stored entries.
func (s *Service) CountEntries(ctx context.Context) (int, error) {
	return s.repo.CountEntries(ctx)
}

// DeleteEntry removes an entry from the record store, then its mirror
// file and asset subdirectory. Idempotent on missing ids.
func (s *Service) DeleteEntry(ctx context.Context, id string) (bool, error) {
	if err := s.requireUnlocked(); err != nil {
		return false, err
	}
	removed, err := s.repo.DeleteEntry(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		if err := s.mirror.Remove(id, true); err != nil {
			return true, err
		}
	}
	s.sec.Touch()
	return removed, nil
}

// ToggleFavorite flips an entry's favorite flag and refreshes its
// mirror.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	if err := s.requireUnlocked(); err != nil {
		return false, err
	}
	fav, err := s.repo.ToggleFavorite(ctx, id)
	if err != nil {
		return false, err
	}
	e, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return fav, err
	}
	if err := s.mirror.Write(e); err != nil {
		return fav, err
	}
	s.sec.Touch()
	return fav, nil
}

// GetStorageInfo summarizes the structured store.
func (s *Service) GetStorageInfo(ctx context.Context) (*db.StorageInfo, error) {
	return s.repo.GetStorageInfo(ctx)
}

// GetMetadata returns a metadata value.
func (s *Service) GetMetadata(ctx context.Context, key string) (json.RawMessage, error) {
	return s.repo.GetMetadata(ctx, key)
}

// SetMetadata upserts a metadata value.
func (s *Service) SetMetadata(ctx context.Context, key string, value json.RawMessage) error {
	if err := s.requireUnlocked(); err != nil {
		return err
	}
	if err := s.repo.SetMetadata(ctx, key, value); err != nil {
		return err
	}
	s.sec.Touch()
	return nil
}

// SetDailyMood upserts the mood for a calendar day.
func (s *Service) SetDailyMood(ctx context.Context, date, mood string) (*models.DailyMood, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}
	m := &models.DailyMood{Date: date, Mood: mood, Timestamp: time.Now()}
	if err := s.repo.SetDailyMood(ctx, m); err != nil {
		return nil, err
	}
	s.sec.Touch()
	return m, nil
}

// GetDailyMood returns the mood recorded for a calendar day.
func (s *Service) GetDailyMood(ctx context.Context, date string) (*models.DailyMood, error) {
	return s.repo.GetDailyMood(ctx, date)
}

// MoodHistory returns recorded moods, newest day first.
func (s *Service) MoodHistory(ctx context.Context, limit int) ([]*models.DailyMood, error) {
	return s.repo.MoodHistory(ctx, limit)
}

// Export serializes the full entry set and mood history into one
// versioned snapshot with content opened, so the document is portable
// across installations and passcodes.
func (s *Service) Export(ctx context.Context) (*models.Snapshot, error) {
	if err := s.requireUnlocked(); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	moods, err := s.repo.MoodHistory(ctx, 0)
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
		if err := s.openContent(e); err != nil {
			return nil, err
		}
		snap.Entries = append(snap.Entries, models.NewEntryDocument(e))
	}
	for _, m := range moods {
		snap.DailyMoods = append(snap.DailyMoods, *m)
	}
	s.sec.Touch()
	return snap, nil
}

// Import applies a snapshot with last-writer-wins conflict resolution
// inside one all-or-nothing transaction, then resynchronizes the full
// mirror against the resulting entry set. Returns the number of entry
// rows written.
func (s *Service) Import(ctx context.Context, snap *models.Snapshot) (int, error) {
	if err := s.requireUnlocked(); err != nil {
		return 0, err
	}
	if snap == nil {
		return 0, apperrors.New(apperrors.ErrValidation, "snapshot is required")
	}

	// Losing entries must leave no trace: asset extraction writes to
	// disk, so the last-writer-wins outcome is decided before any
	// incoming payload touches the asset tree.
	current, err := s.repo.ListEntries(ctx)
	if err != nil {
		return 0, err
	}
	updatedByID := make(map[string]time.Time, len(current))
	for _, e := range current {
		updatedByID[e.ID] = e.UpdatedAt
	}

	prepared := *snap
	prepared.Entries = make([]models.EntryDocument, 0, len(snap.Entries))
	for i := range snap.Entries {
		doc := snap.Entries[i]
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if existing, ok := updatedByID[doc.ID]; ok {
			incoming, parseable := models.ParseTimestamp(doc.UpdatedAt)
			if !parseable || !incoming.After(existing) {
				continue
			}
		}
		content, extracted, err := s.mirror.ExtractAudio(doc.Content, doc.ID)
		if err != nil {
			return 0, err
		}
		doc.AudioFiles = mergeAudioFiles(s.mirror.SanitizeAudioFiles(doc.AudioFiles, doc.ID), extracted)
		doc.WordCount = textutil.CountWords(content)
		doc.Content, doc.ContentEncrypted, err = s.sealContent(content)
		if err != nil {
			return 0, err
		}
		prepared.Entries = append(prepared.Entries, doc)
	}

	written, err := s.repo.ImportAll(ctx, &prepared)
	if err != nil {
		return 0, err
	}

	entries, err := s.repo.ListEntries(ctx)
	if err != nil {
		return written, err
	}
	if err := s.mirror.Resync(entries); err != nil {
		return written, err
	}

	s.sec.Touch()
	s.log.Info("import applied", map[string]interface{}{"written": written})
	return written, nil
}

// ClearAll deletes every entry and mood row, then empties the mirror
// tree. Schema-version metadata survives.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.requireUnlocked(); err != nil {
		return err
	}
	if err := s.repo.ClearAll(ctx); err != nil {
		return err
	}
	if err := s.mirror.Resync(nil); err != nil {
		return err
	}
	s.sec.Touch()
	return nil
}
