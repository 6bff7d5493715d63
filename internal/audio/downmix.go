package audio

// Downmix folds interleaved samples into a single channel by averaging each
// frame. A trailing partial frame is ignored.
func Downmix(interleaved []float32, channels int) SampleBlock {
	if channels <= 0 {
		channels = 1
	}
	return downmixInterleaved(interleaved, channels, len(interleaved)/channels)
}

func downmixInterleaved(input []float32, channels, frames int) SampleBlock {
	out := make(SampleBlock, frames)
	if channels == 1 {
		copy(out, input[:frames])
		return out
	}

	n := float32(channels)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += input[base+c]
		}
		out[f] = sum / n
	}
	return out
}
