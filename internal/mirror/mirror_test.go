package mirror

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/simnote/core/internal/logging"
	"github.com/simnote/core/internal/models"
)

func newTestMirror(t *testing.T) (*Mirror, string) {
	t.Helper()
	root := t.TempDir()
	m, err := New(root, logging.New(io.Discard, logging.LevelError))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, root
}

func mirrorEntry(id, name string) *models.Entry {
	now := time.Now()
	return &models.Entry{ID: id, Name: name, Content: "body", CreatedAt: now, UpdatedAt: now}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My First Entry", "My-First-Entry"},
		{"  spaced   out  ", "spaced-out"},
		{"sla/sh..es\\here", "slashes" + "here"},
		{"日記", "entry"},
		{"", "entry"},
		{strings.Repeat("a", 60), strings.Repeat("a", 40)},
	}
	for _, tc := range cases {
		if got := sanitizeName(tc.in); got != tc.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteCreatesMirrorDocument(t *testing.T) {
	m, root := newTestMirror(t)
	e := mirrorEntry("abc-123", "My Day")

	if err := m.Write(e); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(root, "entries", "My-Day-abc-123.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read mirror file: %v", err)
	}
	var doc models.MirrorDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode mirror file: %v", err)
	}
	if doc.SimnoteVersion != models.SimnoteVersion || doc.ID != "abc-123" || doc.Content != "body" {
		t.Errorf("mirror document = %+v", doc)
	}
	if doc.ExportedAt == "" {
		t.Error("exportedAt missing")
	}
}

func TestWriteRejectsUnsafeID(t *testing.T) {
	m, _ := newTestMirror(t)
	for _, id := range []string{"", "..", "a/b", `a\b`, "x..y"} {
		if err := m.Write(mirrorEntry(id, "n")); err == nil {
			t.Errorf("id %q accepted", id)
		}
	}
}

func TestRemoveAfterRename(t *testing.T) {
	m, root := newTestMirror(t)
	e := mirrorEntry("id-1", "Old Name")
	if err := m.Write(e); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Simulate a rename: a second file for the same id appears.
	e.Name = "New Name"
	if err := m.Write(e); err != nil {
		t.Fatalf("Write renamed: %v", err)
	}

	if err := m.Remove("id-1", false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	dirents, err := os.ReadDir(filepath.Join(root, "entries"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(dirents) != 0 {
		t.Errorf("%d mirror files remain after remove", len(dirents))
	}
}

func TestRemoveDeletesAssets(t *testing.T) {
	m, root := newTestMirror(t)
	assetDir := filepath.Join(root, "assets", "id-2")
	if err := os.MkdirAll(assetDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(assetDir, "audio-1.mp3"), []byte("x"), 0644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	if err := m.Remove("id-2", true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(assetDir); !os.IsNotExist(err) {
		t.Error("asset directory survived removal")
	}
}

func TestResyncRemovesStaleFiles(t *testing.T) {
	m, root := newTestMirror(t)
	keep := mirrorEntry("keep", "Kept")
	stale := mirrorEntry("stale", "Stale")
	for _, e := range []*models.Entry{keep, stale} {
		if err := m.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	staleAssets := filepath.Join(root, "assets", "stale")
	if err := os.MkdirAll(staleAssets, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := m.Resync([]*models.Entry{keep}); err != nil {
		t.Fatalf("Resync: %v", err)
	}

	dirents, err := os.ReadDir(filepath.Join(root, "entries"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(dirents) != 1 || dirents[0].Name() != "Kept-keep.json" {
		t.Errorf("mirror dir after resync: %v", dirents)
	}
	if _, err := os.Stat(staleAssets); !os.IsNotExist(err) {
		t.Error("stale asset directory survived resync")
	}
}

func TestExtractAudio(t *testing.T) {
	m, root := newTestMirror(t)
	payload := base64.StdEncoding.EncodeToString([]byte("RIFFxxxxWAVEfmt not really audio"))
	content := `before <audio src="data:audio/wav;base64,` + payload + `"></audio> after`

	rewritten, files, err := m.ExtractAudio(content, "voice-1")
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("extracted %d files, want 1", len(files))
	}
	if !strings.HasPrefix(files[0].Path, "assets/voice-1/audio-1") {
		t.Errorf("asset path = %s", files[0].Path)
	}
	if strings.Contains(rewritten, "base64") {
		t.Error("payload still inline after extraction")
	}
	if !strings.Contains(rewritten, files[0].Path) {
		t.Errorf("rewritten content does not reference %s: %s", files[0].Path, rewritten)
	}
	if !strings.HasPrefix(rewritten, "before ") || !strings.HasSuffix(rewritten, " after") {
		t.Errorf("surrounding content damaged: %s", rewritten)
	}

	data, err := os.ReadFile(filepath.Join(root, files[0].Path))
	if err != nil {
		t.Fatalf("read asset: %v", err)
	}
	if int64(len(data)) != files[0].ByteLength {
		t.Errorf("asset length = %d, want %d", len(data), files[0].ByteLength)
	}
}

func TestExtractAudioNoPayloads(t *testing.T) {
	m, root := newTestMirror(t)
	content := "nothing embedded here"
	rewritten, files, err := m.ExtractAudio(content, "plain")
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if rewritten != content || files != nil {
		t.Errorf("content changed with no payloads: %q %v", rewritten, files)
	}
	if _, err := os.Stat(filepath.Join(root, "assets", "plain")); !os.IsNotExist(err) {
		t.Error("asset directory created with no payloads")
	}
}

func TestExtractAudioMultiplePayloads(t *testing.T) {
	m, _ := newTestMirror(t)
	p1 := base64.StdEncoding.EncodeToString([]byte("first recording bytes"))
	p2 := base64.StdEncoding.EncodeToString([]byte("second recording bytes"))
	content := "a data:audio/webm;base64," + p1 + " b data:audio/ogg;base64," + p2 + " c"

	rewritten, files, err := m.ExtractAudio(content, "multi")
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("extracted %d files, want 2", len(files))
	}
	if files[0].Path == files[1].Path {
		t.Error("asset filenames collide")
	}
	for _, f := range files {
		if !strings.Contains(rewritten, f.Path) {
			t.Errorf("rewritten content missing %s", f.Path)
		}
	}
}

func TestExtractAudioContinuesNumbering(t *testing.T) {
	m, root := newTestMirror(t)
	p1 := base64.StdEncoding.EncodeToString([]byte("take one"))
	p2 := base64.StdEncoding.EncodeToString([]byte("take two"))

	_, first, err := m.ExtractAudio(`<audio src="data:audio/webm;base64,`+p1+`"></audio>`, "journal-day")
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	_, second, err := m.ExtractAudio(`<audio src="data:audio/webm;base64,`+p2+`"></audio>`, "journal-day")
	if err != nil {
		t.Fatalf("ExtractAudio second call: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("extracted %d and %d files, want 1 each", len(first), len(second))
	}
	if first[0].Path == second[0].Path {
		t.Fatalf("second extraction reused %s", first[0].Path)
	}
	if !strings.HasPrefix(second[0].Path, "assets/journal-day/audio-2") {
		t.Errorf("second asset path = %s", second[0].Path)
	}

	// The earlier recording must be untouched.
	data, err := os.ReadFile(filepath.Join(root, first[0].Path))
	if err != nil {
		t.Fatalf("read first asset: %v", err)
	}
	if string(data) != "take one" {
		t.Errorf("first asset now holds %q", data)
	}
	data, err = os.ReadFile(filepath.Join(root, second[0].Path))
	if err != nil {
		t.Fatalf("read second asset: %v", err)
	}
	if string(data) != "take two" {
		t.Errorf("second asset holds %q", data)
	}
}

func TestSanitizeAudioFiles(t *testing.T) {
	m, _ := newTestMirror(t)
	files := []models.AudioFile{
		{Path: "assets/e1/audio-1.mp3"},
		{Path: "../../etc/passwd"},
		{Path: "/abs/path.mp3"},
		{Path: "assets/other-entry/audio-1.mp3"},
		{Path: `assets\e1\audio-2.mp3`},
	}
	kept := m.SanitizeAudioFiles(files, "e1")
	if len(kept) != 1 || kept[0].Path != "assets/e1/audio-1.mp3" {
		t.Errorf("kept = %v", kept)
	}
}
