// Package audiotest provides an in-memory audio.Host for tests. Streams never
// produce data on their own; tests inject blocks with Emit and failures with
// Fail, playing the part of the host's audio thread.
package audiotest

import (
	"fmt"
	"sync"

	"github.com/petems/wavescope/internal/audio"
)

// FakeHost records every stream operation in call order.
type FakeHost struct {
	mu       sync.Mutex
	devices  []audio.Device
	listErr  error
	buildErr map[string]error
	startErr map[string]error
	configs  map[string]audio.StreamConfig
	streams  []*FakeStream
	calls    []string
	listed   int
	closed   bool
}

func NewFakeHost(devices ...audio.Device) *FakeHost {
	return &FakeHost{
		devices:  devices,
		buildErr: make(map[string]error),
		startErr: make(map[string]error),
		configs:  make(map[string]audio.StreamConfig),
	}
}

// Microphone returns a capture device with the given id and name.
func Microphone(id, name string) audio.Device {
	return audio.Device{ID: id, Name: name, MaxInputChannels: 1, DefaultSampleRate: 48000}
}

// Speaker returns an output-only device.
func Speaker(id, name string) audio.Device {
	return audio.Device{ID: id, Name: name, DefaultSampleRate: 48000}
}

func (h *FakeHost) SetDevices(devices ...audio.Device) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices = devices
}

func (h *FakeHost) SetListError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listErr = err
}

func (h *FakeHost) SetBuildError(id string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buildErr[id] = err
}

func (h *FakeHost) SetStartError(id string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startErr[id] = err
}

// SetDefaultConfig overrides the config reported for a device. Without it the
// device gets its DefaultSampleRate and MaxInputChannels.
func (h *FakeHost) SetDefaultConfig(id string, cfg audio.StreamConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.configs[id] = cfg
}

// Calls returns the recorded operations, e.g. "build:mic", "start:mic",
// "stop:mic".
func (h *FakeHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

// ListCount reports how many times Devices was called.
func (h *FakeHost) ListCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.listed
}

// Streams returns every stream built so far, oldest first.
func (h *FakeHost) Streams() []*FakeStream {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*FakeStream(nil), h.streams...)
}

// LastStream returns the most recently built stream or nil.
func (h *FakeHost) LastStream() *FakeStream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.streams) == 0 {
		return nil
	}
	return h.streams[len(h.streams)-1]
}

func (h *FakeHost) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *FakeHost) Name() string {
	return "fake"
}

func (h *FakeHost) Devices() ([]audio.Device, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listed++
	if h.listErr != nil {
		return nil, h.listErr
	}
	return append([]audio.Device(nil), h.devices...), nil
}

func (h *FakeHost) DefaultInputConfig(device audio.Device) (audio.StreamConfig, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cfg, ok := h.configs[device.ID]; ok {
		return cfg, nil
	}
	return audio.StreamConfig{
		SampleRate: device.DefaultSampleRate,
		Channels:   device.MaxInputChannels,
	}, nil
}

func (h *FakeHost) BuildInputStream(device audio.Device, cfg audio.StreamConfig, onData func([]float32), onError func(error)) (audio.Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "build:"+device.ID)
	if err := h.buildErr[device.ID]; err != nil {
		return nil, err
	}
	s := &FakeStream{
		host:    h,
		device:  device,
		cfg:     cfg,
		onData:  onData,
		onError: onError,
	}
	h.streams = append(h.streams, s)
	return s, nil
}

func (h *FakeHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *FakeHost) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

func (h *FakeHost) startError(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startErr[id]
}

// FakeStream delivers data only while started.
type FakeStream struct {
	host    *FakeHost
	device  audio.Device
	cfg     audio.StreamConfig
	onData  func([]float32)
	onError func(error)

	// mu is held across callbacks so Stop waits for an in-flight Emit, as a
	// real host does.
	mu      sync.Mutex
	running bool
	stops   int
}

func (s *FakeStream) Device() audio.Device {
	return s.device
}

func (s *FakeStream) Start() error {
	s.host.record("start:" + s.device.ID)
	if err := s.host.startError(s.device.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

func (s *FakeStream) Stop() error {
	s.host.record("stop:" + s.device.ID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.stops++
	return nil
}

func (s *FakeStream) Config() audio.StreamConfig {
	return s.cfg
}

// Running reports whether the stream is started and not stopped.
func (s *FakeStream) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// StopCount reports how many times Stop was called.
func (s *FakeStream) StopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Emit delivers interleaved samples as the audio thread would. It returns
// false when the stream is not running and nothing was delivered.
func (s *FakeStream) Emit(interleaved ...float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.onData(interleaved)
	return true
}

// Fail reports an asynchronous stream error.
func (s *FakeStream) Fail(err error) {
	s.onError(err)
}

func (s *FakeStream) String() string {
	return fmt.Sprintf("fake stream %s (%s)", s.device.ID, s.cfg)
}
