package audio

import (
	"fmt"

	"github.com/rs/zerolog"
)

const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
	BackendWav       = "wav"
)

// HostOptions carries backend specific settings.
type HostOptions struct {
	WavDir string
	Logger zerolog.Logger
}

// NewHost opens the named backend.
func NewHost(backend string, opts HostOptions) (Host, error) {
	switch backend {
	case BackendPortAudio, "":
		return NewPortAudioHost()
	case BackendMalgo:
		return NewMalgoHost(opts.Logger)
	case BackendWav:
		return NewWavHost(opts.WavDir), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}
