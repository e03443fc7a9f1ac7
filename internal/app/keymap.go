package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings that work regardless of control mode.
type KeyMap struct {
	Quit        key.Binding
	Focus       key.Binding
	ControlMode key.Binding
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Select      key.Binding
	Delete      key.Binding
	Confirm     key.Binding
	Paste       key.Binding
	Share       key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:        key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
		Focus:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		ControlMode: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "control mode")),
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Confirm:     key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		Paste:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "paste subs")),
		Share:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy link")),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Focus, k.ControlMode, k.Up, k.Down, k.Select, k.Delete, k.Paste, k.Share, k.Quit}
}

// FullHelp groups all bindings.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Focus, k.ControlMode, k.Quit},
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Select, k.Delete, k.Paste, k.Share},
	}
}
