package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the player shortcuts. Letter keys accept both cases.
type keyMap struct {
	openFile, openPlaylist,
	playPause, stop, repeat,
	next, previous,
	volumeUp, volumeDown,
	forward, backward,
	jump,
	properties, help,
	quit, forceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		openFile: key.NewBinding(
			key.WithKeys("f", "F"),
			key.WithHelp("F", "open file"),
		),
		openPlaylist: key.NewBinding(
			key.WithKeys("a", "A"),
			key.WithHelp("A", "open playlist"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		stop: key.NewBinding(
			key.WithKeys("s", "S"),
			key.WithHelp("S", "stop"),
		),
		repeat: key.NewBinding(
			key.WithKeys("r", "R"),
			key.WithHelp("R", "repeat"),
		),
		next: key.NewBinding(
			key.WithKeys("n", "N"),
			key.WithHelp("N", "next"),
		),
		previous: key.NewBinding(
			key.WithKeys("b", "B"),
			key.WithHelp("B", "previous"),
		),
		volumeUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "volume up"),
		),
		volumeDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "volume down"),
		),
		forward: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "forward"),
		),
		backward: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "backward"),
		),
		jump: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "seek to 0-90%"),
		),
		properties: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "properties"),
		),
		help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp is shown in the status bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.openFile, k.openPlaylist, k.next, k.previous, k.help, k.quit}
}

// FullHelp is shown in the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.openFile, k.openPlaylist, k.next, k.previous},
		{k.playPause, k.stop, k.repeat, k.jump},
		{k.volumeUp, k.volumeDown, k.forward, k.backward},
		{k.properties, k.help, k.quit},
	}
}

// pickerKeys are active inside the open-file and open-playlist dialogs.
type pickerKeys struct {
	cancel, done key.Binding
}

func newPickerKeys() pickerKeys {
	return pickerKeys{
		cancel: key.NewBinding(
			key.WithKeys("esc", "q"),
			key.WithHelp("esc", "cancel"),
		),
		done: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "play list"),
		),
	}
}
