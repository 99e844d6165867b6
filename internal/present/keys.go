package present

import "github.com/charmbracelet/bubbles/key"

// keyMap defines key bindings.
type keyMap struct {
	PrevStep  key.Binding
	NextStep  key.Binding
	PrevSlide key.Binding
	NextSlide key.Binding
	First     key.Binding
	Notes     key.Binding
	Present   key.Binding
	Follow    key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	PrevStep: key.NewBinding(
		key.WithKeys("left", "pgup"),
		key.WithHelp("←/pgup", "prev step"),
	),
	NextStep: key.NewBinding(
		key.WithKeys("right", "pgdown"),
		key.WithHelp("→/pgdn", "next step"),
	),
	PrevSlide: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "prev slide"),
	),
	NextSlide: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next slide"),
	),
	First: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("home", "first slide"),
	),
	Notes: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "notes"),
	),
	Present: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "present"),
	),
	Follow: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "follow"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextStep, k.PrevStep, k.NextSlide, k.PrevSlide, k.Notes, k.Present, k.Follow, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextStep, k.PrevStep, k.NextSlide, k.PrevSlide, k.First},
		{k.Notes, k.Present, k.Follow, k.Quit},
	}
}
