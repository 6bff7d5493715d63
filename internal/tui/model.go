package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/petems/wavescope/internal/app"
	"github.com/petems/wavescope/internal/config"
	"github.com/petems/wavescope/internal/waveform"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// title line and footer
	chromeRows = 2
)

// copyText is swapped out in tests.
var copyText = clipboard.WriteAll

type tickMsg time.Time

// statusMsg carries StatusUpdater calls into the update loop.
type statusMsg struct {
	text  string
	isErr bool
}

// Model is the terminal front end. It holds no capture state of its own; every
// action goes through the controller.
type Model struct {
	app  *app.App
	tick time.Duration
	log  zerolog.Logger
	help help.Model

	width, height int
	cursor        int
	line          waveform.Polyline
	notice        string
	noticeErr     bool
}

func NewModel(a *app.App, cfg *config.Config, log zerolog.Logger) Model {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	return Model{
		app:    a,
		tick:   tick,
		log:    log,
		help:   help.New(),
		width:  defaultWidth,
		height: defaultHeight,
	}
}

func (m Model) Init() tea.Cmd {
	return m.nextTick()
}

func (m Model) nextTick() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) plotSize() (int, int) {
	return m.width, max(m.height-chromeRows, 1)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.line = waveform.Polyline{}
		return m, nil

	case tickMsg:
		if line, ok := m.app.PollLatestWaveform(rasterBounds(m.plotSize())); ok {
			m.line = line
		}
		return m, m.nextTick()

	case statusMsg:
		m.notice, m.noticeErr = msg.text, msg.isErr
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, keys.Copy) {
		if err := copyText(m.app.Diagnostics()); err != nil {
			m.log.Warn().Err(err).Msg("Failed to copy diagnostics")
			m.notice, m.noticeErr = "Clipboard unavailable: "+err.Error(), true
		} else {
			m.notice, m.noticeErr = "Diagnostics copied to clipboard", false
		}
		return m, nil
	}

	view := m.app.View()
	if view.ShowSelector {
		return m.handleSelectorKey(msg, view), nil
	}

	switch {
	case key.Matches(msg, keys.Open), key.Matches(msg, keys.Enter):
		m.openSelector()
	case key.Matches(msg, keys.Back):
		m.app.Escape()
		if m.app.State() != app.Capturing {
			m.line = waveform.Polyline{}
		}
	case key.Matches(msg, keys.Stop):
		m.app.StopActiveSession()
		m.line = waveform.Polyline{}
	}
	return m, nil
}

func (m *Model) openSelector() {
	m.cursor = 0
	if _, err := m.app.OpenSelector(); err != nil {
		m.notice, m.noticeErr = err.Error(), true
		return
	}
	m.notice = ""
}

func (m Model) handleSelectorKey(msg tea.KeyMsg, view app.ViewState) Model {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(view.Devices)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if m.cursor >= len(view.Devices) {
			return m
		}
		device := view.Devices[m.cursor]
		m.line = waveform.Polyline{}
		if err := m.app.SelectDevice(device.ID); err != nil {
			m.notice, m.noticeErr = err.Error(), true
			return m
		}
		m.notice, m.noticeErr = "Capturing from "+device.Name, false
	case key.Matches(msg, keys.Back):
		m.app.Escape()
	}
	return m
}

func (m Model) View() string {
	view := m.app.View()
	p := paletteFor(view.Theme)
	cols, rows := m.plotSize()

	title := "wavescope"
	if view.Page == app.PageWaveform {
		title = fmt.Sprintf("wavescope · %s · %s", view.ActiveDevice.Name, view.Format)
	}

	var body string
	switch {
	case view.ShowSelector:
		body = lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, m.selectorView(view, p))
	case view.Page == app.PageWaveform:
		body = p.ink.Render(strings.Join(raster(m.line, cols, rows), "\n"))
	default:
		body = lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center,
			"Press s to choose an input device")
	}

	footer := m.help.ShortHelpView(keys.ShortHelp())
	if m.notice != "" {
		style := p.status
		if m.noticeErr {
			style = p.errText
		}
		footer = style.Render(m.notice) + "  " + footer
	}

	screen := lipgloss.JoinVertical(lipgloss.Left,
		p.title.Render(title),
		body,
		footer,
	)
	return p.screen.Width(m.width).Height(m.height).Render(screen)
}

func (m Model) selectorView(view app.ViewState, p palette) string {
	var b strings.Builder
	b.WriteString("Select an input device\n\n")

	switch {
	case view.ListError != "":
		b.WriteString(p.errText.Render("Could not list devices: " + view.ListError))
	case len(view.Devices) == 0:
		b.WriteString("No capture devices found")
	default:
		for i, d := range view.Devices {
			line := "  " + d.Name
			if d.Default {
				line += " (default)"
			}
			if i == m.cursor {
				line = p.cursor.Render("> " + strings.TrimPrefix(line, "  "))
			}
			b.WriteString(line)
			if i < len(view.Devices)-1 {
				b.WriteString("\n")
			}
		}
	}
	return p.overlay.Render(b.String())
}
