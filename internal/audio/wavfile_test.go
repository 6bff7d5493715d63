package audio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWav(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestIntBufferToFloat32(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		data  []int
		want  []float32
	}{
		{"16 bit", 16, []int{0, 16384, -16384, -32768}, []float32{0, 0.5, -0.5, -1}},
		{"8 bit unsigned", 8, []int{128, 192, 0}, []float32{0, 0.5, -1}},
		{"24 bit", 24, []int{4194304}, []float32{0.5}},
		{"unknown depth assumes 16", 0, []int{16384}, []float32{0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := intBufferToFloat32(&goaudio.IntBuffer{Data: tt.data, SourceBitDepth: tt.depth})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWavHostDevices(t *testing.T) {
	dir := t.TempDir()
	writeWav(t, filepath.Join(dir, "b-stereo.wav"), 44100, 2, []int{1, 2, 3, 4})
	writeWav(t, filepath.Join(dir, "a-mono.wav"), 8000, 1, []int{1, 2})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("not a wav"), 0644))

	host := NewWavHost(dir)
	defer host.Close()

	devices, err := host.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, "a-mono", devices[0].Name)
	assert.Equal(t, filepath.Join(dir, "a-mono.wav"), devices[0].ID)
	assert.Equal(t, 1, devices[0].MaxInputChannels)
	assert.Equal(t, 8000.0, devices[0].DefaultSampleRate)

	assert.Equal(t, "b-stereo", devices[1].Name)
	assert.Equal(t, 2, devices[1].MaxInputChannels)

	cfg, err := host.DefaultInputConfig(devices[1])
	require.NoError(t, err)
	assert.Equal(t, StreamConfig{SampleRate: 44100, Channels: 2, FramesPerBuffer: defaultWavFramesPerBuffer}, cfg)
}

func TestWavHostMissingDir(t *testing.T) {
	_, err := NewWavHost(filepath.Join(t.TempDir(), "nope")).Devices()
	assert.Error(t, err)
}

func TestWavStreamLoopsFileUntilStopped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeWav(t, path, 8000, 1, []int{16384, -16384, 0, 8192})

	host := NewWavHost(dir)
	device := Device{ID: path, Name: "tone", MaxInputChannels: 1, DefaultSampleRate: 8000}

	var mu sync.Mutex
	var blocks [][]float32
	stream, err := host.BuildInputStream(device, StreamConfig{FramesPerBuffer: 4}, func(in []float32) {
		mu.Lock()
		defer mu.Unlock()
		blocks = append(blocks, append([]float32(nil), in...))
	}, func(error) {})
	require.NoError(t, err)
	assert.Equal(t, StreamConfig{SampleRate: 8000, Channels: 1, FramesPerBuffer: 4}, stream.Config())

	require.NoError(t, stream.Start())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(blocks) >= 2
	}, time.Second, time.Millisecond)

	require.NoError(t, stream.Stop())
	require.NoError(t, stream.Stop())

	mu.Lock()
	count := len(blocks)
	assert.Equal(t, []float32{0.5, -0.5, 0, 0.25}, blocks[0])
	assert.Equal(t, blocks[0], blocks[1], "the file repeats")
	mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, count, len(blocks), "no blocks after Stop")
	mu.Unlock()
}

func TestWavStreamRejectsMismatchedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	writeWav(t, path, 8000, 1, []int{1, 2, 3})
	device := Device{ID: path, Name: "tone", MaxInputChannels: 1}

	_, err := NewWavHost(dir).BuildInputStream(device, StreamConfig{Channels: 2}, func([]float32) {}, func(error) {})
	assert.Error(t, err)

	_, err = NewWavHost(dir).BuildInputStream(device, StreamConfig{SampleRate: 44100}, func([]float32) {}, func(error) {})
	assert.Error(t, err)
}
