package logging

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithLevelWritesLogFile(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("log path override uses XDG_STATE_HOME")
	}
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	log := NewWithLevel("debug", false)
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
	log.Debug().Msg("hello from the test")

	path := filepath.Join(dir, "wavescope", "wavescope.log")
	assert.Equal(t, path, Path())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the test")
}

func TestNewWithLevelUnknownFallsBackToInfo(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	assert.Equal(t, zerolog.InfoLevel, NewWithLevel("loud", false).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, NewWithLevel("", false).GetLevel())
}
