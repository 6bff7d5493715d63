package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/petems/wavescope/internal/app"
)

type palette struct {
	screen  lipgloss.Style
	title   lipgloss.Style
	ink     lipgloss.Style
	status  lipgloss.Style
	errText lipgloss.Style
	overlay lipgloss.Style
	cursor  lipgloss.Style
}

func paletteFor(theme app.Theme) palette {
	bg, fg, accent := lipgloss.Color("#1e1e2e"), lipgloss.Color("#cdd6f4"), lipgloss.Color("#89b4fa")
	if theme == app.ThemeScope {
		bg, fg, accent = lipgloss.Color("#0f5132"), lipgloss.Color("#f8f9fa"), lipgloss.Color("#b9f6ca")
	}

	return palette{
		screen:  lipgloss.NewStyle().Background(bg).Foreground(fg),
		title:   lipgloss.NewStyle().Background(bg).Foreground(accent).Bold(true),
		ink:     lipgloss.NewStyle().Background(bg).Foreground(accent),
		status:  lipgloss.NewStyle().Background(bg).Foreground(fg).Faint(true),
		errText: lipgloss.NewStyle().Background(bg).Foreground(lipgloss.Color("#f38ba8")),
		overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		cursor: lipgloss.NewStyle().Foreground(accent).Bold(true),
	}
}
