package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownmixInterleavedMono(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3, 0.4}
	got := downmixInterleaved(input, 1, len(input))

	require.Len(t, got, len(input))
	assert.Equal(t, SampleBlock(input), got)
	assert.NotSame(t, &input[0], &got[0], "mono input is copied, not aliased")
}

func TestDownmix(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		channels int
		want     SampleBlock
	}{
		{
			name: "stereo",
			input: []float32{
				0.0, 1.0,
				0.5, 0.5,
				1.0, 0.0,
				-0.5, 0.5,
			},
			channels: 2,
			want:     SampleBlock{0.5, 0.5, 0.5, 0.0},
		},
		{
			name: "three channels",
			input: []float32{
				1, 3, 5,
				2, 4, 6,
			},
			channels: 3,
			want:     SampleBlock{3, 4},
		},
		{
			name:     "trailing partial frame dropped",
			input:    []float32{1, 1, 0.5},
			channels: 2,
			want:     SampleBlock{1},
		},
		{
			name:     "zero channels treated as mono",
			input:    []float32{0.25, -0.25},
			channels: 0,
			want:     SampleBlock{0.25, -0.25},
		},
		{
			name:     "empty",
			input:    nil,
			channels: 2,
			want:     SampleBlock{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Downmix(tt.input, tt.channels))
		})
	}
}
