package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/wavescope/internal/app"
	"github.com/petems/wavescope/internal/audio/audiotest"
	"github.com/petems/wavescope/internal/config"
)

var (
	runes = func(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

func newTestModel(t *testing.T) (Model, *app.App, *audiotest.FakeHost) {
	t.Helper()
	host := audiotest.NewFakeHost(
		audiotest.Microphone("builtin", "Built-in Microphone"),
		audiotest.Speaker("hdmi", "HDMI Output"),
		audiotest.Microphone("usb", "USB Audio"),
	)
	cfg := &config.Config{TickInterval: 10 * time.Millisecond}
	a := app.New(app.Config{Host: host, Config: cfg, Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = a.Shutdown() })
	m, _ := NewModel(a, cfg, zerolog.Nop()).Update(tea.WindowSizeMsg{Width: 200, Height: 30})
	return m.(Model), a, host
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestOpenSelectorListsCaptureDevices(t *testing.T) {
	m, a, _ := newTestModel(t)

	m, _ = update(t, m, runes("s"))

	assert.Equal(t, app.DeviceListOpen, a.State())
	out := m.View()
	assert.Contains(t, out, "Built-in Microphone")
	assert.Contains(t, out, "USB Audio")
	assert.NotContains(t, out, "HDMI Output")
}

func TestSelectDeviceAndDrawWaveform(t *testing.T) {
	m, a, host := newTestModel(t)

	m, _ = update(t, m, enter)
	m, _ = update(t, m, down)
	m, _ = update(t, m, enter)

	require.Equal(t, app.Capturing, a.State())
	assert.Equal(t, []string{"build:usb", "start:usb"}, host.Calls())
	assert.Equal(t, "Capturing from USB Audio", m.notice)

	require.True(t, host.LastStream().Emit(0, 1, -1, 0))
	m, cmd := update(t, m, tickMsg(time.Now()))
	assert.NotNil(t, cmd, "ticks keep coming")
	assert.Len(t, m.line.Points, 4)

	// no new block: the last line stays on screen
	m, _ = update(t, m, tickMsg(time.Now()))
	assert.Len(t, m.line.Points, 4)
	assert.Contains(t, m.View(), string(inkCell))
}

func TestEscapeStopsCapture(t *testing.T) {
	m, a, host := newTestModel(t)

	m, _ = update(t, m, runes("s"))
	m, _ = update(t, m, enter)
	require.Equal(t, app.Capturing, a.State())

	m, _ = update(t, m, esc)

	assert.Equal(t, app.Idle, a.State())
	assert.False(t, host.LastStream().Running())
	assert.True(t, m.line.Empty())
}

func TestSelectorOverWaveformEscapeKeepsCapture(t *testing.T) {
	m, a, host := newTestModel(t)

	m, _ = update(t, m, runes("s"))
	m, _ = update(t, m, enter)
	require.Equal(t, app.Capturing, a.State())

	m, _ = update(t, m, runes("s"))
	require.Equal(t, app.DeviceListOpen, a.State())
	m, _ = update(t, m, esc)

	assert.Equal(t, app.Capturing, a.State())
	assert.Equal(t, app.PageWaveform, a.View().Page)
	assert.True(t, host.LastStream().Running())

	_, _ = update(t, m, esc)
	assert.Equal(t, app.Idle, a.State())
	assert.False(t, host.LastStream().Running())
}

func TestSelectorEscapeDismisses(t *testing.T) {
	m, a, host := newTestModel(t)

	m, _ = update(t, m, runes("s"))
	_, _ = update(t, m, esc)

	assert.Equal(t, app.Idle, a.State())
	assert.Empty(t, host.Calls())
}

func TestSelectorShowsEnumerationError(t *testing.T) {
	m, _, host := newTestModel(t)
	host.SetListError(errors.New("driver crashed"))

	m, _ = update(t, m, runes("s"))

	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "driver crashed")
	assert.Contains(t, m.View(), "Could not list devices")
}

func TestCopyDiagnostics(t *testing.T) {
	m, _, _ := newTestModel(t)

	var copied string
	saved := copyText
	copyText = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { copyText = saved })

	m, _ = update(t, m, runes("c"))

	assert.Contains(t, copied, "state: idle")
	assert.Equal(t, "Diagnostics copied to clipboard", m.notice)
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestStatusMessageShown(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = update(t, m, statusMsg{text: "Capture failed: unplugged", isErr: true})

	assert.Contains(t, m.View(), "Capture failed: unplugged")
}
