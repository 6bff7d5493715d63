// Package capture binds one audio device to one running input stream and
// feeds its blocks into a frame channel.
package capture

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petems/wavescope/internal/audio"
	"github.com/petems/wavescope/internal/frame"
)

type State int32

const (
	Running State = iota
	Stopped
	Errored
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// ErrorSink receives asynchronous stream failures. It is called at most once
// per session, never on the host's audio thread.
type ErrorSink func(err error)

type Options struct {
	Logger    zerolog.Logger
	ErrorSink ErrorSink
	// FramesPerBuffer overrides the device default when positive.
	FramesPerBuffer int
}

// Session is one active capture stream.
type Session struct {
	id       string
	device   audio.Device
	stream   audio.Stream
	channels int
	producer *frame.Producer
	log      zerolog.Logger
	sink     ErrorSink

	state    atomic.Int32
	stopOnce sync.Once
	stopErr  error
	failOnce sync.Once
}

// Open checks that device is still present and capture capable, opens it with
// its default input configuration and starts streaming into producer.
func Open(host audio.Host, device audio.Device, producer *frame.Producer, opts Options) (*Session, error) {
	current, err := audio.NewCatalog(host).Lookup(device.ID)
	if err != nil {
		return nil, err
	}
	return OpenDevice(host, current, producer, opts)
}

// OpenDevice is Open for a device the caller has just looked up.
func OpenDevice(host audio.Host, current audio.Device, producer *frame.Producer, opts Options) (*Session, error) {
	cfg, err := host.DefaultInputConfig(current)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", audio.ErrStreamBuild, current.Name, err)
	}
	if opts.FramesPerBuffer > 0 {
		cfg.FramesPerBuffer = opts.FramesPerBuffer
	}

	id := uuid.NewString()
	s := &Session{
		id:       id,
		device:   current,
		producer: producer,
		sink:     opts.ErrorSink,
		log: opts.Logger.With().
			Str("session", id).
			Str("device", current.Name).
			Logger(),
	}

	stream, err := host.BuildInputStream(current, cfg, s.onData, s.onError)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", audio.ErrStreamBuild, current.Name, err)
	}
	s.stream = stream
	s.channels = max(stream.Config().Channels, 1)
	s.state.Store(int32(Running))

	if err := stream.Start(); err != nil {
		s.state.Store(int32(Stopped))
		s.halt()
		return nil, fmt.Errorf("%w: %s: %w", audio.ErrStreamStart, current.Name, err)
	}

	s.log.Info().Stringer("format", stream.Config()).Msg("Capture started")
	return s, nil
}

// onData runs on the audio thread: downmix, hand off, return.
func (s *Session) onData(interleaved []float32) {
	s.producer.Send(audio.Downmix(interleaved, s.channels))
}

// onError may run on the audio thread, so the teardown happens elsewhere.
func (s *Session) onError(err error) {
	s.failOnce.Do(func() {
		if !s.state.CompareAndSwap(int32(Running), int32(Errored)) {
			return
		}
		go s.fail(err)
	})
}

func (s *Session) fail(cause error) {
	s.halt()

	err := fmt.Errorf("%w: %s: %w", audio.ErrStreamRuntime, s.device.Name, cause)
	s.log.Error().Err(err).Msg("Capture failed")
	if s.sink != nil {
		s.sink(err)
	}
}

// Stop halts the stream and releases the device. When it returns no further
// block from this session reaches the channel. Safe to call more than once.
func (s *Session) Stop() error {
	if s.state.CompareAndSwap(int32(Running), int32(Stopped)) {
		s.log.Info().Msg("Stopping capture")
	}
	return s.halt()
}

// halt runs the stream teardown once; concurrent callers wait for it.
func (s *Session) halt() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.stream.Stop()
		s.producer.Close()
		if s.stopErr != nil {
			s.log.Warn().Err(s.stopErr).Msg("Stream stop reported an error")
		}
	})
	return s.stopErr
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Device() audio.Device {
	return s.device
}

// Config is the format negotiated with the device.
func (s *Session) Config() audio.StreamConfig {
	return s.stream.Config()
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Overflows reports input overruns for hosts that detect them.
func (s *Session) Overflows() uint64 {
	if c, ok := s.stream.(interface{ Overflows() uint64 }); ok {
		return c.Overflows()
	}
	return 0
}
