package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Open  key.Binding
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Stop  key.Binding
	Copy  key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the footer
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Back, k.Stop, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Open, k.Up, k.Down, k.Enter},
		{k.Back, k.Stop, k.Copy, k.Quit},
	}
}

var keys = keyMap{
	Open: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "select device"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "choose"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Stop: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "stop capture"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy diagnostics"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
