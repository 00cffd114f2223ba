package journal

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/logging"
	"github.com/simnote/core/internal/models"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	svc, err := New(Options{DataDir: dir, Logger: logging.New(os.Stderr, logging.LevelError)})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, dir
}

func TestSaveAndGetEntry(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	e, err := svc.SaveEntry(ctx, &models.Entry{
		Name:    "First Day",
		Content: "<p>hello wonderful world</p>",
		Mood:    "happy",
		Tags:    []string{"daily", " daily ", "trip"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 3, e.WordCount)
	assert.Equal(t, []string{"daily", "trip"}, e.Tags, "tags are trimmed and deduplicated")
	assert.False(t, e.ContentEncrypted)

	got, err := svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>hello wonderful world</p>", got.Content)

	// The mirror file exists and is valid JSON.
	matches, err := filepath.Glob(filepath.Join(dir, "entries", "*-"+e.ID+".json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestUpdateEntryPartial(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	e, err := svc.SaveEntry(ctx, &models.Entry{Name: "Before", Content: "one two"})
	require.NoError(t, err)
	created := e.CreatedAt

	name := "After The Rename"
	content := "one two three four"
	got, err := svc.UpdateEntry(ctx, &models.EntryPatch{ID: e.ID, Name: &name, Content: &content})
	require.NoError(t, err)
	assert.Equal(t, "After The Rename", got.Name)
	assert.Equal(t, 4, got.WordCount)
	assert.True(t, got.CreatedAt.Equal(created), "createdAt must not change")
	assert.True(t, got.UpdatedAt.After(created) || got.UpdatedAt.Equal(created))

	// Exactly one mirror file remains after the rename.
	matches, err := filepath.Glob(filepath.Join(dir, "entries", "*-"+e.ID+".json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0], "After-The-Rename")
}

func TestUpdateEntryMissing(t *testing.T) {
	svc, _ := newTestService(t)
	name := "x"
	_, err := svc.UpdateEntry(context.Background(), &models.EntryPatch{ID: "ghost", Name: &name})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteEntryRemovesMirror(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	e, err := svc.SaveEntry(ctx, &models.Entry{Name: "Doomed", Content: "x"})
	require.NoError(t, err)

	removed, err := svc.DeleteEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	matches, err := filepath.Glob(filepath.Join(dir, "entries", "*-"+e.ID+".json"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	removed, err = svc.DeleteEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, removed, "second delete is a no-op")
}

func TestSaveExtractsInlineAudio(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	payload := base64.StdEncoding.EncodeToString([]byte("pretend audio bytes"))
	e, err := svc.SaveEntry(ctx, &models.Entry{
		Name:    "Voice Memo",
		Content: `note <audio src="data:audio/webm;base64,` + payload + `"></audio>`,
	})
	require.NoError(t, err)
	require.Len(t, e.AudioFiles, 1)
	assert.NotContains(t, e.Content, "base64")

	data, err := os.ReadFile(filepath.Join(dir, e.AudioFiles[0].Path))
	require.NoError(t, err)
	assert.Equal(t, "pretend audio bytes", string(data))
}

func TestSecurityLifecycle(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	e, err := svc.SaveEntry(ctx, &models.Entry{Name: "Secret", Content: "my private thoughts"})
	require.NoError(t, err)

	// Enabling security seals the pre-existing entry.
	require.NoError(t, svc.SetupPasscode(ctx, "1234"))
	assert.True(t, svc.IsSecurityEnabled())
	assert.True(t, svc.IsUnlocked())

	entries, err := svc.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].ContentEncrypted)
	assert.NotContains(t, entries[0].Content, "private")

	// The mirror holds ciphertext too.
	matches, err := filepath.Glob(filepath.Join(dir, "entries", "*-"+e.ID+".json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "private")

	// While unlocked, content reads decrypt transparently.
	got, err := svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "my private thoughts", got.Content)

	// Locked: metadata listing still works, content access fails.
	svc.Lock()
	entries, err = svc.ListEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Secret", entries[0].Name)

	_, err = svc.GetEntry(ctx, e.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked))
	_, err = svc.SaveEntry(ctx, &models.Entry{Name: "nope"})
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked))
	_, err = svc.DeleteEntry(ctx, e.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked))

	// Unlock and disable: entries come back as plaintext.
	require.NoError(t, svc.UnlockWithPasscode("1234"))
	require.NoError(t, svc.DisableSecurity(ctx, "1234"))
	assert.False(t, svc.IsSecurityEnabled())

	entries, err = svc.ListEntries(ctx)
	require.NoError(t, err)
	assert.False(t, entries[0].ContentEncrypted)
	assert.Equal(t, "my private thoughts", entries[0].Content)
}

func TestWrongPasscodeMessageIsGeneric(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.SetupPasscode(context.Background(), "1234"))
	svc.Lock()

	err := svc.UnlockWithPasscode("0000")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrAuth))
	assert.NotContains(t, err.Error(), "1234")
}

func TestExportImportRoundTrip(t *testing.T) {
	src, _ := newTestService(t)
	ctx := context.Background()

	e, err := src.SaveEntry(ctx, &models.Entry{Name: "Traveler", Content: "packed my bags"})
	require.NoError(t, err)
	_, err = src.SetDailyMood(ctx, "2026-08-29", "excited")
	require.NoError(t, err)

	snap, err := src.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	require.Len(t, snap.DailyMoods, 1)

	dst, _ := newTestService(t)
	written, err := dst.Import(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	got, err := dst.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "packed my bags", got.Content)
	mood, err := dst.GetDailyMood(ctx, "2026-08-29")
	require.NoError(t, err)
	assert.Equal(t, "excited", mood.Mood)
}

func TestExportDecryptsContent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetupPasscode(ctx, "1234"))
	_, err := svc.SaveEntry(ctx, &models.Entry{Name: "Sealed", Content: "portable secret"})
	require.NoError(t, err)

	snap, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Entries, 1)
	assert.False(t, snap.Entries[0].ContentEncrypted, "snapshots are portable plaintext")
	assert.Equal(t, "portable secret", snap.Entries[0].Content)

	svc.Lock()
	_, err = svc.Export(ctx)
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked))
}

func TestImportSealsUnderLocalKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.SetupPasscode(ctx, "1234"))

	written, err := svc.Import(ctx, &models.Snapshot{
		Version: models.SnapshotVersion,
		Entries: []models.EntryDocument{{ID: "in-1", Name: "Incoming", Content: "from elsewhere"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	entries, err := svc.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].ContentEncrypted)

	got, err := svc.GetEntry(ctx, "in-1")
	require.NoError(t, err)
	assert.Equal(t, "from elsewhere", got.Content)
}

func TestImportOlderSnapshotLeavesAssetsAlone(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	current := base64.StdEncoding.EncodeToString([]byte("current recording"))
	e, err := svc.SaveEntry(ctx, &models.Entry{
		Name:    "Voice",
		Content: `<audio src="data:audio/webm;base64,` + current + `"></audio>`,
	})
	require.NoError(t, err)
	require.Len(t, e.AudioFiles, 1)
	assetPath := filepath.Join(dir, e.AudioFiles[0].Path)

	// A snapshot carrying an older revision of the same entry, with
	// its own inline recording, must lose outright: no row written,
	// no byte of the incoming payload on disk.
	stale := base64.StdEncoding.EncodeToString([]byte("stale recording"))
	written, err := svc.Import(ctx, &models.Snapshot{
		Version: models.SnapshotVersion,
		Entries: []models.EntryDocument{{
			ID:        e.ID,
			Name:      "Voice",
			Content:   `<audio src="data:audio/webm;base64,` + stale + `"></audio>`,
			UpdatedAt: e.UpdatedAt.Add(-24 * time.Hour).Format(time.RFC3339Nano),
		}},
	})
	require.NoError(t, err)
	assert.Zero(t, written)

	data, err := os.ReadFile(assetPath)
	require.NoError(t, err)
	assert.Equal(t, "current recording", string(data))

	dirents, err := os.ReadDir(filepath.Join(dir, "assets", e.ID))
	require.NoError(t, err)
	assert.Len(t, dirents, 1, "losing import must not add asset files")

	got, err := svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.AudioFiles, 1)
	assert.Equal(t, e.AudioFiles[0].Path, got.AudioFiles[0].Path)
}

func TestImportUnparseableTimestampLosesToExistingRow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	e, err := svc.SaveEntry(ctx, &models.Entry{Name: "Kept", Content: "original"})
	require.NoError(t, err)

	written, err := svc.Import(ctx, &models.Snapshot{
		Version: models.SnapshotVersion,
		Entries: []models.EntryDocument{{
			ID:        e.ID,
			Name:      "Overwriter",
			Content:   "should not land",
			UpdatedAt: "not a timestamp",
		}},
	})
	require.NoError(t, err)
	assert.Zero(t, written)

	got, err := svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content)
}

func TestReenablingPasscodeKeepsEntriesReadable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetupPasscode(ctx, "1111"))
	e, err := svc.SaveEntry(ctx, &models.Entry{Name: "Kept", Content: "written under the first key"})
	require.NoError(t, err)

	// A second setup rotates the master key; sealed entries must be
	// carried across the rotation instead of being orphaned.
	require.NoError(t, svc.SetupPasscode(ctx, "2222"))

	got, err := svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "written under the first key", got.Content)

	svc.Lock()
	require.NoError(t, svc.UnlockWithPasscode("2222"))
	got, err = svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "written under the first key", got.Content)
}

func TestReenablingPasscodeWhileLockedFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetupPasscode(ctx, "1111"))
	e, err := svc.SaveEntry(ctx, &models.Entry{Name: "Sealed", Content: "must survive"})
	require.NoError(t, err)
	svc.Lock()

	err = svc.SetupPasscode(ctx, "2222")
	assert.True(t, apperrors.Is(err, apperrors.ErrLocked))

	// The original passcode still opens everything.
	require.NoError(t, svc.UnlockWithPasscode("1111"))
	got, err := svc.GetEntry(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "must survive", got.Content)
}

func TestAppendedRecordingKeepsEarlierAsset(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	p1 := base64.StdEncoding.EncodeToString([]byte("monday take"))
	e, err := svc.SaveEntry(ctx, &models.Entry{
		Name:    "Week",
		Content: `<audio src="data:audio/webm;base64,` + p1 + `"></audio>`,
	})
	require.NoError(t, err)
	require.Len(t, e.AudioFiles, 1)

	p2 := base64.StdEncoding.EncodeToString([]byte("tuesday take"))
	content := e.Content + ` <audio src="data:audio/webm;base64,` + p2 + `"></audio>`
	got, err := svc.UpdateEntry(ctx, &models.EntryPatch{ID: e.ID, Content: &content})
	require.NoError(t, err)

	require.Len(t, got.AudioFiles, 2)
	assert.NotEqual(t, got.AudioFiles[0].Path, got.AudioFiles[1].Path)

	data, err := os.ReadFile(filepath.Join(dir, e.AudioFiles[0].Path))
	require.NoError(t, err)
	assert.Equal(t, "monday take", string(data))
	data, err = os.ReadFile(filepath.Join(dir, got.AudioFiles[1].Path))
	require.NoError(t, err)
	assert.Equal(t, "tuesday take", string(data))
}

func TestAutoLockMinutesFlowFromOptions(t *testing.T) {
	dir := t.TempDir()
	svc, err := New(Options{
		DataDir:         dir,
		AutoLockMinutes: 7,
		Logger:          logging.New(os.Stderr, logging.LevelError),
	})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	ctx := context.Background()

	require.NoError(t, svc.SetupPasscode(ctx, "1234"))
	assert.Equal(t, 7, svc.SecurityConfig().AutoLockMinutes)

	// An explicit runtime change wins over the configured default,
	// including across a later key rotation.
	require.NoError(t, svc.SetAutoLockMinutes(3))
	require.NoError(t, svc.SetupPasscode(ctx, "5678"))
	assert.Equal(t, 3, svc.SecurityConfig().AutoLockMinutes)
}

func TestClearAllEmptiesMirror(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	_, err := svc.SaveEntry(ctx, &models.Entry{Name: "A", Content: "x"})
	require.NoError(t, err)
	_, err = svc.SaveEntry(ctx, &models.Entry{Name: "B", Content: "y"})
	require.NoError(t, err)

	require.NoError(t, svc.ClearAll(ctx))

	n, err := svc.CountEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	matches, err := filepath.Glob(filepath.Join(dir, "entries", "*.json"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestToggleFavoriteRefreshesMirror(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	e, err := svc.SaveEntry(ctx, &models.Entry{Name: "Fav", Content: "x"})
	require.NoError(t, err)

	fav, err := svc.ToggleFavorite(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, fav)

	matches, err := filepath.Glob(filepath.Join(dir, "entries", "*-"+e.ID+".json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"favorite": true`))
}

func TestMetadataPassthrough(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetMetadata(ctx, "lastBackup", []byte(`"2026-08-29"`)))
	got, err := svc.GetMetadata(ctx, "lastBackup")
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-08-29"`, string(got))
}
