package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTone(t *testing.T, path string, channels int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, 22050, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: 22050},
		Data:           make([]int, 64*channels),
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDevicesListsWavFiles(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "stereo tone.wav"), 2)

	out, err := execute(t, "devices",
		"--config", filepath.Join(dir, "config.json"),
		"--backend", "wav",
		"--wav-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "stereo tone")
	assert.Contains(t, out, "22050")
}

func TestDevicesEmptyDirectory(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "devices",
		"--config", filepath.Join(dir, "config.json"),
		"--backend", "wav",
		"--wav-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "No capture devices found\n", out)
}

func TestDevicesEnumerationErrorFails(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "devices",
		"--config", filepath.Join(dir, "config.json"),
		"--backend", "wav",
		"--wav-dir", filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestUnknownBackend(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "devices",
		"--config", filepath.Join(dir, "config.json"),
		"--backend", "jack")
	assert.ErrorContains(t, err, "unknown audio backend")
}

func TestLoadConfigAppliesOnlyChangedFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend": "malgo", "ui": "tray", "log_level": "debug"}`), 0644))

	opts := &options{}
	cmd := &cobra.Command{Use: "test"}
	opts.bind(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--ui", "tui", "--device", "usb"}))

	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)

	assert.Equal(t, "malgo", cfg.Backend, "unset flags keep the file value")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tui", cfg.UI)
	assert.Equal(t, "usb", cfg.DeviceID)
	assert.Equal(t, path, cfg.File())
}
