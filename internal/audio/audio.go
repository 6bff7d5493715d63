package audio

import (
	"errors"
	"fmt"
)

// Error taxonomy for capture. Call sites wrap these with the host cause so
// callers can match with errors.Is and still log the underlying reason.
var (
	ErrDeviceEnumeration = errors.New("device enumeration failed")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrStreamBuild       = errors.New("failed to build input stream")
	ErrStreamStart       = errors.New("failed to start input stream")
	ErrStreamRuntime     = errors.New("input stream error")
)

// Device is a snapshot of an audio device taken at enumeration time
type Device struct {
	ID                string
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// CanCapture reports whether the device has any input channels.
func (d Device) CanCapture() bool {
	return d.MaxInputChannels > 0
}

func (d Device) String() string {
	return d.Name
}

// SampleBlock holds the mono samples delivered by one capture callback.
// Values are normalized to [-1, 1].
type SampleBlock []float32

// StreamConfig is the input format a stream runs with. A zero SampleRate or
// Channels asks the host for the device's native value.
type StreamConfig struct {
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%.0f Hz, %d ch, %d frames", c.SampleRate, c.Channels, c.FramesPerBuffer)
}

// Host is an audio subsystem able to enumerate devices and open input streams
type Host interface {
	Name() string
	// Devices queries the subsystem at call time. Results are never cached.
	Devices() ([]Device, error)
	DefaultInputConfig(device Device) (StreamConfig, error)
	// BuildInputStream prepares a stream without starting it. onData receives
	// interleaved samples on the host's audio thread and must not block.
	// onError may be called from any thread once the stream has started.
	BuildInputStream(device Device, cfg StreamConfig, onData func(interleaved []float32), onError func(error)) (Stream, error)
	Close() error
}

// Stream is one open input stream.
type Stream interface {
	Start() error
	// Stop halts the stream and releases the device. Once it returns the
	// onData callback will not run again. Calling Stop twice is allowed.
	Stop() error
	// Config reports the format the stream actually negotiated.
	Config() StreamConfig
}
