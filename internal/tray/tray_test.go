package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/petems/wavescope/internal/audio"
	"github.com/petems/wavescope/internal/audio/audiotest"
	"github.com/petems/wavescope/internal/waveform"
)

func TestEmojiForStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"capturing", "🟢"},
		{"error", "🔴"},
		{"idle", "⚪️"},
		{"something else", "⚪️"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, emojiForStatus(tt.status))
		})
	}
}

func TestLevelBar(t *testing.T) {
	tests := []struct {
		name  string
		level float32
		want  string
	}{
		{"silence", 0, "▯▯▯▯"},
		{"half", 0.5, "▮▮▯▯"},
		{"full", 1, "▮▮▮▮"},
		{"over range", 3, "▮▮▮▮"},
		{"negative", -1, "▯▯▯▯"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, levelBar(tt.level, 4))
		})
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "🎧 ⚪️", title("idle", 0.9))
	assert.Equal(t, "🎧 🔴", title("error", 0))
	assert.Equal(t, "🎧 🟢 ▮▮▮▮▯▯▯▯", title("capturing", 0.5))
}

func TestMeterUsesPeakOfPolyline(t *testing.T) {
	line := waveform.Render(audio.SampleBlock{0.1, -0.75, 0.25}, meterBounds)
	assert.InDelta(t, 0.75, line.Peak(meterBounds), 1e-6)
	assert.Equal(t, "▮▮▮▮▮▮▯▯", levelBar(line.Peak(meterBounds), levelBarWidth))
}

func TestDeviceLabel(t *testing.T) {
	mic := audiotest.Microphone("mic", "Built-in Microphone")
	assert.Equal(t, "Built-in Microphone", deviceLabel(mic))

	mic.Default = true
	assert.Equal(t, "Built-in Microphone (default)", deviceLabel(mic))
}
