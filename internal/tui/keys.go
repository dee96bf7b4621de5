package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the playback keybindings
type KeyMap struct {
	ToggleSubtitles key.Binding
	SubtitleOptions key.Binding
	SearchSubtitles key.Binding
	OffsetLater     key.Binding
	OffsetEarlier   key.Binding
	AudioTrack      key.Binding
	AudioBoost      key.Binding
	Settings        key.Binding
	Resize          key.Binding
	ChannelUp       key.Binding
	ChannelDown     key.Binding
	PlayNext        key.Binding
	DismissNext     key.Binding
	Popover         key.Binding
	Up              key.Binding
	Down            key.Binding
	Select          key.Binding
	Back            key.Binding
	Quit            key.Binding
}

// DefaultKeyMap returns default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ToggleSubtitles: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "subs on/off"),
		),
		SubtitleOptions: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "subtitles"),
		),
		SearchSubtitles: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "find subs"),
		),
		OffsetLater: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "sub delay"),
		),
		OffsetEarlier: key.NewBinding(
			key.WithKeys("-", "_"),
		),
		AudioTrack: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "audio"),
		),
		AudioBoost: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "boost"),
		),
		Settings: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "settings"),
		),
		Resize: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "resize"),
		),
		ChannelUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/↓", "channel"),
		),
		ChannelDown: key.NewBinding(
			key.WithKeys("down", "j"),
		),
		PlayNext: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next"),
		),
		DismissNext: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "hide countdown"),
		),
		Popover: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "controls"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace", "q"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleSubtitles, k.SubtitleOptions, k.AudioTrack, k.Settings, k.Resize, k.Popover, k.Back}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ToggleSubtitles, k.SubtitleOptions, k.SearchSubtitles, k.OffsetLater},
		{k.AudioTrack, k.AudioBoost, k.Settings, k.Resize},
		{k.ChannelUp, k.PlayNext, k.DismissNext, k.Popover},
		{k.Back, k.Quit},
	}
}

// dialogHelp is shown while a dialog is open
func (k KeyMap) dialogHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Back}
}
