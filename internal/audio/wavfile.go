package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const defaultWavFramesPerBuffer = 512

// wavHost exposes every .wav file in a directory as a capture device. Files
// are replayed in a loop at their own sample rate, which makes the viewer
// usable on machines without an input device.
type wavHost struct {
	dir string
}

func NewWavHost(dir string) Host {
	if dir == "" {
		dir = "."
	}
	return &wavHost{dir: dir}
}

func (w *wavHost) Name() string {
	return BackendWav
}

func (w *wavHost) Devices() ([]Device, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.dir, err)
	}

	var result []Device
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		channels, rate, err := readWavInfo(path)
		if err != nil {
			// Unreadable files are not devices.
			continue
		}
		result = append(result, Device{
			ID:                path,
			Name:              strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			MaxInputChannels:  channels,
			DefaultSampleRate: rate,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (w *wavHost) DefaultInputConfig(device Device) (StreamConfig, error) {
	channels, rate, err := readWavInfo(device.ID)
	if err != nil {
		return StreamConfig{}, fmt.Errorf("%w: %s: %w", ErrDeviceNotFound, device.ID, err)
	}
	return StreamConfig{
		SampleRate:      rate,
		Channels:        channels,
		FramesPerBuffer: defaultWavFramesPerBuffer,
	}, nil
}

func (w *wavHost) BuildInputStream(device Device, cfg StreamConfig, onData func([]float32), onError func(error)) (Stream, error) {
	f, err := os.Open(device.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceNotFound, device.ID, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV data: %w", err)
	}

	channels := int(decoder.NumChans)
	rate := float64(decoder.SampleRate)
	if channels == 0 || rate <= 0 {
		return nil, errors.New("WAV header has no channels or sample rate")
	}
	if cfg.Channels != 0 && cfg.Channels != channels {
		return nil, fmt.Errorf("file has %d channels, %d requested", channels, cfg.Channels)
	}
	if cfg.SampleRate != 0 && cfg.SampleRate != rate {
		return nil, fmt.Errorf("file is %.0f Hz, %.0f Hz requested", rate, cfg.SampleRate)
	}
	frames := cfg.FramesPerBuffer
	if frames <= 0 {
		frames = defaultWavFramesPerBuffer
	}

	samples := intBufferToFloat32(buf)
	samples = samples[:len(samples)/channels*channels]
	if len(samples) == 0 {
		return nil, errors.New("WAV file contains no samples")
	}

	return &wavStream{
		samples: samples,
		cfg: StreamConfig{
			SampleRate:      rate,
			Channels:        channels,
			FramesPerBuffer: frames,
		},
		period: time.Duration(float64(frames) / rate * float64(time.Second)),
		onData: onData,
		stop:   make(chan struct{}),
	}, nil
}

func (w *wavHost) Close() error {
	return nil
}

func readWavInfo(path string) (channels int, rate float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return 0, 0, err
	}
	if !decoder.IsValidFile() {
		return 0, 0, errors.New("not a valid WAV file")
	}
	return int(decoder.NumChans), float64(decoder.SampleRate), nil
}

// intBufferToFloat32 normalizes PCM integers by the source bit depth. 8-bit
// WAV data is unsigned and is recentred first.
func intBufferToFloat32(buf *goaudio.IntBuffer) []float32 {
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	full := float32(int64(1) << (depth - 1))

	out := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		if depth == 8 {
			v -= 128
		}
		out[i] = float32(v) / full
	}
	return out
}

type wavStream struct {
	samples []float32
	cfg     StreamConfig
	period  time.Duration
	onData  func([]float32)

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup
}

func (s *wavStream) Start() error {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.play()
	})
	return nil
}

// play hands out one buffer per period, wrapping around at the end of the
// file, until Stop is called.
func (s *wavStream) play() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	chunk := s.cfg.FramesPerBuffer * s.cfg.Channels
	buf := make([]float32, chunk)
	pos := 0
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
		for i := range buf {
			buf[i] = s.samples[pos]
			pos++
			if pos == len(s.samples) {
				pos = 0
			}
		}
		s.onData(buf)
	}
}

func (s *wavStream) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	return nil
}

func (s *wavStream) Config() StreamConfig {
	return s.cfg
}
