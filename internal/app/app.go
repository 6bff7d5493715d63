package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/petems/wavescope/internal/audio"
	"github.com/petems/wavescope/internal/capture"
	"github.com/petems/wavescope/internal/config"
	"github.com/petems/wavescope/internal/frame"
	"github.com/petems/wavescope/internal/waveform"
)

type State int

const (
	Idle State = iota
	DeviceListOpen
	Capturing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DeviceListOpen:
		return "device list"
	case Capturing:
		return "capturing"
	default:
		return "unknown"
	}
}

type Page int

const (
	PageMain Page = iota
	PageWaveform
)

type Theme int

const (
	ThemeDark Theme = iota
	// ThemeScope is the light palette on a green background used once a
	// device has been chosen.
	ThemeScope
)

// ViewState is what a front end needs to draw the current screen.
type ViewState struct {
	Page         Page
	Theme        Theme
	ShowSelector bool
	Devices      []audio.Device
	// ListError is set when the last enumeration failed; Devices is then empty.
	ListError    string
	ActiveDevice audio.Device
	Format       audio.StreamConfig
}

// StatusUpdater is notified of capture state changes (e.g. tray title, TUI
// status line). Methods are called without the controller lock held.
type StatusUpdater interface {
	SetIdle()
	SetCapturing(device string)
	SetError(message string)
}

type Config struct {
	Host          audio.Host
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// App is the session controller. It owns at most one capture session and the
// consumer end of its frame channel.
type App struct {
	host    audio.Host
	catalog *audio.Catalog
	cfg     *config.Config
	log     zerolog.Logger

	mu       sync.Mutex
	status   StatusUpdater
	state    State
	view     ViewState
	session  *capture.Session
	consumer *frame.Consumer
	gen      uint64
	lastErr  error
	// overCapture is set while the selector is shown on top of a live session.
	overCapture bool
	// remembered is the device id last written to the config.
	remembered string

	// saveMu orders config writes the same way as the selections behind them.
	saveMu sync.Mutex
}

func New(cfg Config) *App {
	c := cfg.Config
	if c == nil {
		c = &config.Config{}
	}
	return &App{
		host:    cfg.Host,
		catalog: audio.NewCatalog(cfg.Host),
		cfg:     c,
		log:     cfg.Logger,
		status:     cfg.StatusUpdater,
		remembered: c.DeviceID,
	}
}

// SetStatusUpdater replaces the status receiver. Front ends that are created
// after the controller use it to attach themselves.
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// OpenSelector enumerates capture devices and shows the selection overlay.
// On failure the overlay still opens, empty, with the error recorded in the
// view.
func (a *App) OpenSelector() ([]audio.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case Capturing:
		a.overCapture = a.session != nil
	case Idle:
		a.overCapture = false
	}
	a.state = DeviceListOpen
	a.view.Page = PageMain
	a.view.ShowSelector = true

	devices, err := a.catalog.ListCaptureDevices()
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to list capture devices")
		a.view.Devices = nil
		a.view.ListError = err.Error()
		return nil, err
	}

	a.log.Debug().Int("count", len(devices)).Msg("Listed capture devices")
	a.view.Devices = devices
	a.view.ListError = ""
	return devices, nil
}

// ListDevices enumerates capture devices without changing the view.
func (a *App) ListDevices() ([]audio.Device, error) {
	return a.catalog.ListCaptureDevices()
}

// Dismiss hides the device overlay. If it was opened over a running capture
// the waveform view comes back.
func (a *App) Dismiss() {
	a.mu.Lock()
	var status StatusUpdater
	if a.state == DeviceListOpen {
		status = a.closeSelectorLocked()
	}
	a.mu.Unlock()

	if status != nil {
		status.SetIdle()
	}
}

// closeSelectorLocked leaves DeviceListOpen. A session left behind without
// keep_capturing_in_background is stopped; the returned updater, if any, must
// be told about it once the lock is released.
func (a *App) closeSelectorLocked() StatusUpdater {
	a.view.ShowSelector = false
	if a.overCapture && a.session != nil {
		a.overCapture = false
		a.showWaveformLocked()
		return nil
	}

	a.overCapture = false
	a.state = Idle
	a.view.Theme = ThemeDark
	if a.session != nil && !a.cfg.KeepCapturing {
		a.stopSessionLocked()
		return a.status
	}
	return nil
}

// SelectDevice switches capture to the device with the given id. The previous
// session is stopped before the new one is opened. An unknown id is rejected
// before anything is stopped.
func (a *App) SelectDevice(id string) error {
	a.mu.Lock()
	status, device, remember, err := a.selectLocked(id)
	a.saveMu.Lock()
	a.mu.Unlock()

	if remember {
		if err := a.cfg.Remember(id); err != nil {
			a.log.Warn().Err(err).Msg("Failed to save config")
		}
	}
	a.saveMu.Unlock()

	if err != nil {
		return err
	}
	if status != nil {
		status.SetCapturing(device)
	}
	return nil
}

func (a *App) selectLocked(id string) (StatusUpdater, string, bool, error) {
	device, err := a.catalog.Lookup(id)
	if err != nil {
		a.log.Warn().Err(err).Str("device", id).Msg("Device selection failed")
		return nil, "", false, err
	}

	if a.cfg.KeepCapturing && a.session != nil && a.session.State() == capture.Running &&
		a.session.Device().ID == id {
		a.overCapture = false
		a.showWaveformLocked()
		return a.status, device.Name, false, nil
	}

	a.stopSessionLocked()

	producer, consumer := frame.New()
	a.gen++
	gen := a.gen
	session, err := capture.OpenDevice(a.host, device, producer, capture.Options{
		Logger:          a.log,
		FramesPerBuffer: a.cfg.FramesPerBuffer,
		ErrorSink: func(err error) {
			a.onStreamError(gen, err)
		},
	})
	if err != nil {
		a.log.Error().Err(err).Str("device", device.Name).Msg("Failed to open capture session")
		a.lastErr = err
		if a.state == Capturing {
			a.state = Idle
			a.view.Page = PageMain
		}
		return nil, "", false, err
	}

	a.session = session
	a.consumer = consumer
	a.lastErr = nil
	a.overCapture = false
	a.view.ActiveDevice = device
	a.view.Format = session.Config()
	a.showWaveformLocked()

	remember := a.remembered != id
	a.remembered = id
	return a.status, device.Name, remember, nil
}

func (a *App) showWaveformLocked() {
	a.state = Capturing
	a.view.Page = PageWaveform
	a.view.ShowSelector = false
	a.view.Theme = ThemeScope
}

// Escape is the back action: it closes the overlay, leaves the waveform view,
// or on the bare main page resets the theme.
func (a *App) Escape() {
	a.mu.Lock()

	var status StatusUpdater
	switch a.state {
	case DeviceListOpen:
		status = a.closeSelectorLocked()
	case Capturing:
		a.state = Idle
		a.view.Page = PageMain
		if !a.cfg.KeepCapturing && a.session != nil {
			a.stopSessionLocked()
			status = a.status
		}
	default:
		a.view.Theme = ThemeDark
	}
	a.mu.Unlock()

	if status != nil {
		status.SetIdle()
	}
}

// StopActiveSession stops capture, if any, and returns to the main page.
func (a *App) StopActiveSession() {
	a.mu.Lock()
	hadSession := a.session != nil
	a.stopSessionLocked()
	if a.state == Capturing {
		a.state = Idle
		a.view.Page = PageMain
	}
	status := a.status
	a.mu.Unlock()

	if hadSession && status != nil {
		status.SetIdle()
	}
}

func (a *App) stopSessionLocked() {
	if a.session == nil {
		return
	}
	if err := a.session.Stop(); err != nil {
		a.log.Warn().Err(err).Msg("Error stopping capture session")
	}
	a.session = nil
	a.consumer = nil
	a.view.Format = audio.StreamConfig{}
}

// PollLatestWaveform returns the newest block rendered into bounds. It never
// waits for audio: false means nothing new arrived since the last call and the
// caller should keep showing what it drew before.
func (a *App) PollLatestWaveform(bounds waveform.Bounds) (waveform.Polyline, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != Capturing || a.consumer == nil {
		return waveform.Polyline{}, false
	}
	block, ok := a.consumer.ReceiveLatest()
	if !ok {
		return waveform.Polyline{}, false
	}
	return waveform.Render(block, bounds), true
}

func (a *App) onStreamError(gen uint64, err error) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		a.log.Debug().Err(err).Msg("Ignoring error from a replaced session")
		return
	}

	a.lastErr = err
	a.session = nil
	a.consumer = nil
	a.view.Format = audio.StreamConfig{}
	if a.state == Capturing {
		a.state = Idle
		a.view.Page = PageMain
	}
	status := a.status
	a.mu.Unlock()

	if status != nil {
		status.SetError(err.Error())
	}
}

func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// View returns a copy of the current view state.
func (a *App) View() ViewState {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.view
	v.Devices = append([]audio.Device(nil), a.view.Devices...)
	return v
}

// IsCapturing reports whether a session is running, whether or not it is
// on screen.
func (a *App) IsCapturing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil && a.session.State() == capture.Running
}

// Stats returns the frame counters of the current session.
func (a *App) Stats() frame.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.consumer == nil {
		return frame.Stats{}
	}
	return a.consumer.Stats()
}

// LastError is the most recent selection or stream error, cleared by a
// successful selection.
func (a *App) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Diagnostics summarizes the capture state for bug reports.
func (a *App) Diagnostics() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := fmt.Sprintf("backend: %s\nstate: %s\n", a.host.Name(), a.state)
	if a.session != nil {
		stats := a.consumer.Stats()
		text += fmt.Sprintf("device: %s (%s)\nsession: %s\nformat: %s\nblocks: sent=%d received=%d dropped=%d overflows=%d\n",
			a.session.Device().Name, a.session.Device().ID, a.session.ID(), a.session.Config(),
			stats.Sent, stats.Received, stats.Dropped, a.session.Overflows())
	}
	if a.view.ListError != "" {
		text += "enumeration: " + a.view.ListError + "\n"
	}
	if a.lastErr != nil {
		text += "error: " + a.lastErr.Error() + "\n"
	}
	return text
}

// Shutdown stops capture. The host is closed by its owner.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.session != nil {
		errs = append(errs, a.session.Stop())
		a.session = nil
		a.consumer = nil
	}
	a.state = Idle
	return errors.Join(errs...)
}
