package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestLevelOrdering(t *testing.T) {
	assert.True(t, LevelDebug.rank() < LevelInfo.rank())
	assert.True(t, LevelInfo.rank() < LevelWarn.rank())
	assert.True(t, LevelWarn.rank() < LevelError.rank())
}

func TestMinLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debug("dropped")
	l.Info("dropped too")
	l.Warn("kept")
	l.Error("kept", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"WARN"`)
	assert.Contains(t, lines[1], `"level":"ERROR"`)
}

func TestRecordShape(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)

	l.Error("open failed", errors.New("no such file"), map[string]interface{}{
		"path": "/tmp/x",
	})

	var rec Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec.Level)
	assert.Equal(t, "open failed", rec.Message)
	assert.Equal(t, "no such file", rec.Error)
	assert.Equal(t, "/tmp/x", rec.Context["path"])
	assert.NotEmpty(t, rec.Timestamp)
}

func TestMergeContext(t *testing.T) {
	assert.Nil(t, mergeContext())

	merged := mergeContext(
		map[string]interface{}{"a": 1, "b": 1},
		map[string]interface{}{"b": 2},
	)
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 2, merged["b"])
}
