package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

type malgoHost struct {
	ctx *malgo.AllocatedContext
}

// NewMalgoHost initializes a miniaudio context on the platform's default
// backend.
func NewMalgoHost(log zerolog.Logger) (Host, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug().Str("backend", BackendMalgo).Msg(message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize miniaudio context: %w", err)
	}
	return &malgoHost{ctx: ctx}, nil
}

func (m *malgoHost) Name() string {
	return BackendMalgo
}

// Devices lists capture devices only; miniaudio does not expose a channel
// count without probing each device, so every entry reports one channel.
func (m *malgoHost) Devices() ([]Device, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}

	result := make([]Device, 0, len(infos))
	for i := range infos {
		result = append(result, Device{
			ID:               infos[i].ID.String(),
			Name:             infos[i].Name(),
			MaxInputChannels: 1,
			Default:          infos[i].IsDefault != 0,
		})
	}
	return result, nil
}

// DefaultInputConfig leaves rate and channels at zero so that miniaudio opens
// the device in its native format. The negotiated values are read back after
// the device is initialized.
func (m *malgoHost) DefaultInputConfig(device Device) (StreamConfig, error) {
	if _, err := m.find(device.ID); err != nil {
		return StreamConfig{}, err
	}
	return StreamConfig{}, nil
}

func (m *malgoHost) BuildInputStream(device Device, cfg StreamConfig, onData func([]float32), onError func(error)) (Stream, error) {
	info, err := m.find(device.ID)
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.Capture.DeviceID = info.ID.Pointer()
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	if cfg.FramesPerBuffer > 0 {
		deviceConfig.PeriodSizeInFrames = uint32(cfg.FramesPerBuffer)
	}

	s := &malgoStream{}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			onData(s.decode(input))
		},
		// miniaudio also calls Stop for a requested stop; only an
		// unrequested one means the device went away.
		Stop: func() {
			if !s.stopping.Load() {
				onError(errors.New("capture device stopped unexpectedly"))
			}
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	s.device = dev
	s.cfg = StreamConfig{
		SampleRate:      float64(dev.SampleRate()),
		Channels:        int(dev.CaptureChannels()),
		FramesPerBuffer: cfg.FramesPerBuffer,
	}
	return s, nil
}

func (m *malgoHost) Close() error {
	if m.ctx == nil {
		return nil
	}
	err := m.ctx.Uninit()
	m.ctx.Free()
	m.ctx = nil
	return err
}

func (m *malgoHost) find(id string) (malgo.DeviceInfo, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("failed to list capture devices: %w", err)
	}
	for _, info := range infos {
		if info.ID.String() == id {
			return info, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

type malgoStream struct {
	device   *malgo.Device
	cfg      StreamConfig
	stopping atomic.Bool
	scratch  []float32

	stopOnce sync.Once
	stopErr  error
}

func (s *malgoStream) Start() error {
	return s.device.Start()
}

// Stop returns once miniaudio has joined its worker, after which the data
// callback cannot fire.
func (s *malgoStream) Stop() error {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		s.stopErr = s.device.Stop()
		s.device.Uninit()
	})
	return s.stopErr
}

func (s *malgoStream) Config() StreamConfig {
	return s.cfg
}

// decode reuses one scratch slice; the session copies out of it while
// downmixing, before the next callback can run.
func (s *malgoStream) decode(input []byte) []float32 {
	n := len(input) / 4
	if cap(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	s.scratch = s.scratch[:n]
	return decodeFloat32LE(s.scratch, input)
}

func decodeFloat32LE(dst []float32, src []byte) []float32 {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return dst
}
