package main

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/simnote/core/internal/errors"
	"github.com/simnote/core/internal/journal"
	"github.com/simnote/core/internal/logging"
)

func TestEnsureUnlockedPromptsForPasscode(t *testing.T) {
	s, err := journal.New(journal.Options{
		DataDir: t.TempDir(),
		Logger:  logging.New(io.Discard, logging.LevelError),
	})
	require.NoError(t, err)
	svc = s
	t.Cleanup(func() {
		svc = nil
		stdin = nil
		s.Close()
	})

	// With security off no prompt is needed, so stdin is never read.
	stdin = strings.NewReader("")
	require.NoError(t, ensureUnlocked())

	require.NoError(t, s.SetupPasscode(context.Background(), "1234"))

	// Already unlocked right after setup: still no prompt.
	require.NoError(t, ensureUnlocked())

	s.Lock()
	stdin = strings.NewReader("1234\n")
	require.NoError(t, ensureUnlocked())
	assert.True(t, s.IsUnlocked())

	s.Lock()
	stdin = strings.NewReader("0000\n")
	err = ensureUnlocked()
	assert.True(t, apperrors.Is(err, apperrors.ErrAuth))
	assert.False(t, s.IsUnlocked())
}
