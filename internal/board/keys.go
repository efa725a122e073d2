package board

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the board's key bindings. Row movement is handled by the
// table's own key map.
type KeyMap struct {
	Detail     key.Binding
	Back       key.Binding
	CycleType  key.Binding
	CycleState key.Binding
	CycleArea  key.Binding
	Clear      key.Binding
	Reload     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Detail: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "details"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	CycleType: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "type"),
	),
	CycleState: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "state"),
	),
	CycleArea: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "area"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear filter"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Detail, k.CycleType, k.CycleState, k.CycleArea, k.Clear, k.Reload, k.Quit}
}
