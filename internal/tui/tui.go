package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/petems/wavescope/internal/app"
	"github.com/petems/wavescope/internal/config"
)

// statusBridge forwards controller status changes to the running program.
// Sends are asynchronous since the controller may call in from inside Update.
type statusBridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func (b *statusBridge) attach(p *tea.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.p = p
}

func (b *statusBridge) send(msg statusMsg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()
	if p != nil {
		go p.Send(msg)
	}
}

func (b *statusBridge) SetIdle() {
	b.send(statusMsg{text: "Capture stopped"})
}

func (b *statusBridge) SetCapturing(device string) {
	b.send(statusMsg{text: "Capturing from " + device})
}

func (b *statusBridge) SetError(message string) {
	b.send(statusMsg{text: "Capture failed: " + message, isErr: true})
}

// Run shows the terminal UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App, cfg *config.Config, log zerolog.Logger) error {
	bridge := &statusBridge{}
	a.SetStatusUpdater(bridge)
	defer a.SetStatusUpdater(nil)

	p := tea.NewProgram(NewModel(a, cfg, log), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.attach(p)

	log.Info().Msg("Starting terminal UI")
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
