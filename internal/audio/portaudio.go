package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

type portAudioHost struct{}

// NewPortAudioHost initializes PortAudio. Close must be called to terminate it.
func NewPortAudioHost() (Host, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioHost{}, nil
}

func (p *portAudioHost) Name() string {
	return BackendPortAudio
}

func (p *portAudioHost) Devices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defaultDevice, _ := portaudio.DefaultInputDevice()

	result := make([]Device, 0, len(devices))
	for _, d := range devices {
		result = append(result, Device{
			ID:                portAudioDeviceID(d),
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Default:           d == defaultDevice,
		})
	}
	return result, nil
}

// DefaultInputConfig uses the device's advertised sample rate and all of its
// input channels.
func (p *portAudioHost) DefaultInputConfig(device Device) (StreamConfig, error) {
	info, err := p.find(device.ID)
	if err != nil {
		return StreamConfig{}, err
	}
	return StreamConfig{
		SampleRate: info.DefaultSampleRate,
		Channels:   info.MaxInputChannels,
	}, nil
}

func (p *portAudioHost) BuildInputStream(device Device, cfg StreamConfig, onData func([]float32), onError func(error)) (Stream, error) {
	info, err := p.find(device.ID)
	if err != nil {
		return nil, err
	}

	s := &portAudioStream{cfg: cfg}
	callback := func(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
		if flags&portaudio.InputOverflow != 0 {
			s.overflows.Add(1)
		}
		onData(in)
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: cfg.Channels,
			Latency:  info.DefaultLowInputLatency,
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.FramesPerBuffer,
	}, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	s.stream = stream

	if streamInfo := stream.Info(); streamInfo != nil && streamInfo.SampleRate > 0 {
		s.cfg.SampleRate = streamInfo.SampleRate
	}
	return s, nil
}

func (p *portAudioHost) Close() error {
	return portaudio.Terminate()
}

func (p *portAudioHost) find(id string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, d := range devices {
		if portAudioDeviceID(d) == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

// portAudioDeviceID qualifies the device name with its host API since the same
// name can appear under ALSA and PulseAudio, or MME and WASAPI.
func portAudioDeviceID(d *portaudio.DeviceInfo) string {
	if d.HostApi == nil {
		return d.Name
	}
	return d.HostApi.Name + ": " + d.Name
}

type portAudioStream struct {
	stream    *portaudio.Stream
	cfg       StreamConfig
	overflows atomic.Uint64

	stopOnce sync.Once
	stopErr  error
}

func (s *portAudioStream) Start() error {
	return s.stream.Start()
}

// Stop waits for the callback to return (Pa_StopStream) before closing.
func (s *portAudioStream) Stop() error {
	s.stopOnce.Do(func() {
		stopErr := s.stream.Stop()
		closeErr := s.stream.Close()
		if stopErr != nil {
			s.stopErr = stopErr
		} else {
			s.stopErr = closeErr
		}
	})
	return s.stopErr
}

func (s *portAudioStream) Config() StreamConfig {
	return s.cfg
}

// Overflows counts callbacks that reported dropped input.
func (s *portAudioStream) Overflows() uint64 {
	return s.overflows.Load()
}
