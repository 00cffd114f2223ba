package mirror

import (
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/gabriel-vasile/mimetype"

	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/fsutil"
	"github.com/simnote/core/internal/models"
)

// inlineAudioRe matches an inline audio data URI embedded in entry
// content, e.g. data:audio/webm;base64,....
var inlineAudioRe = regexp.MustCompile(`data:audio/([a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=]+)`)

// ExtractAudio scans content for inline audio payloads, writes each
// under the entry's asset subdirectory, and rewrites the in-content
// reference to the relative asset path. Payloads that fail to decode
// are left inline rather than lost. Returns the rewritten content and
// the asset references that were written.
func (m *Mirror) ExtractAudio(content, entryID string) (string, []models.AudioFile, error) {
	if !safeID(entryID) {
		return "", nil, apperrors.New(apperrors.ErrStorage, "unsafe entry id")
	}

	matches := inlineAudioRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, nil, nil
	}

	assetDir := filepath.Join(m.root, assetsDirName, entryID)
	if err := os.MkdirAll(assetDir, 0755); err != nil {
		return "", nil, apperrors.Wrap(apperrors.ErrStorage, "failed to create asset directory", err)
	}

	// Continue numbering past assets extracted on earlier saves so a
	// re-extraction never reuses a name a carried-over AudioFiles
	// reference still points at.
	seq, err := lastAudioSeq(assetDir)
	if err != nil {
		return "", nil, err
	}

	var files []models.AudioFile
	var out []byte
	last := 0
	for _, idx := range matches {
		start, end := idx[0], idx[1]
		subtype := content[idx[2]:idx[3]]
		payload := content[idx[4]:idx[5]]

		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			m.log.Warn("undecodable inline audio payload left in place",
				map[string]interface{}{"entry_id": entryID})
			continue
		}

		seq++
		mtype := mimetype.Detect(data)
		ext := mtype.Extension()
		mime := mtype.String()
		if ext == "" || mime == "application/octet-stream" {
			// Sniffing failed; trust the declared subtype.
			ext = "." + subtype
			mime = "audio/" + subtype
		}

		name := fmt.Sprintf("audio-%d%s", seq, ext)
		if err := fsutil.WriteFileAtomic(filepath.Join(assetDir, name), data, 0644); err != nil {
			return "", nil, apperrors.Wrap(apperrors.ErrStorage, "failed to write audio asset", err)
		}

		rel := path.Join(assetsDirName, entryID, name)
		out = append(out, content[last:start]...)
		out = append(out, rel...)
		last = end

		files = append(files, models.AudioFile{
			Path:       rel,
			MimeType:   mime,
			ByteLength: int64(len(data)),
		})
	}
	out = append(out, content[last:]...)
	return string(out), files, nil
}

var audioSeqRe = regexp.MustCompile(`^audio-(\d+)\.`)

// lastAudioSeq returns the highest asset sequence number already
// present in dir, zero for a fresh directory.
func lastAudioSeq(dir string) (int, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStorage, "failed to list asset directory", err)
	}
	max := 0
	for _, d := range dirents {
		m := audioSeqRe.FindStringSubmatch(d.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max, nil
}

// SanitizeAudioFiles drops references whose paths resolve outside the
// entry's own asset subdirectory. Rejected paths are excluded, never
// followed.
func (m *Mirror) SanitizeAudioFiles(files []models.AudioFile, entryID string) []models.AudioFile {
	var kept []models.AudioFile
	for _, f := range files {
		if !safeAssetPath(f.Path, entryID) {
			m.log.Warn("rejected unsafe audio path",
				map[string]interface{}{"entry_id": entryID})
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
