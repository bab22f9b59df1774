package tui

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"hydra/internal/playlistfile"
)

type pickerMode int

const (
	pickFile pickerMode = iota
	pickPlaylist
)

var playlistExtensions = []string{".m3u", ".m3u8", ".pls"}

// Messages produced by the pickers and by startup.
type openFileMsg struct {
	path   string
	resume time.Duration
}
type openPlaylistMsg struct{ paths []string }
type pickerClosedMsg struct{}

// picker wraps a bubbles file picker. In file mode the first selected
// media file is opened. In playlist mode every selected file is collected
// until tab is pressed; picking a playlist file submits its entries at once.
type picker struct {
	mode   pickerMode
	fp     filepicker.Model
	keys   pickerKeys
	reader *playlistfile.Reader
	chosen []string
}

func newPicker(mode pickerMode, dir string, extensions []string, reader *playlistfile.Reader, height int) *picker {
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.AutoHeight = false
	fp.ShowPermissions = false
	allowed := append([]string{}, extensions...)
	if mode == pickPlaylist {
		allowed = append(allowed, playlistExtensions...)
	}
	// The file picker matches suffixes case-sensitively.
	fp.AllowedTypes = lo.Uniq(append(allowed, lo.Map(allowed, func(ext string, _ int) string {
		return strings.ToUpper(ext)
	})...))
	// esc closes the dialog instead of going up a directory.
	fp.KeyMap.Back = key.NewBinding(
		key.WithKeys("h", "backspace", "left"),
		key.WithHelp("h", "back"),
	)
	fp.SetHeight(pickerHeight(height))

	return &picker{
		mode:   mode,
		fp:     fp,
		keys:   newPickerKeys(),
		reader: reader,
	}
}

func pickerHeight(screenHeight int) int {
	return lo.Max([]int{screenHeight - 8, 5})
}

func (p *picker) Init() tea.Cmd {
	return p.fp.Init()
}

func (p *picker) Update(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, p.keys.cancel):
			return emit(pickerClosedMsg{})
		case p.mode == pickPlaylist && key.Matches(k, p.keys.done):
			return emit(openPlaylistMsg{paths: p.chosen})
		}
	}

	var cmd tea.Cmd
	p.fp, cmd = p.fp.Update(msg)

	if ok, path := p.fp.DidSelectFile(msg); ok {
		return p.selected(path)
	}
	return cmd
}

func (p *picker) selected(path string) tea.Cmd {
	if p.mode == pickFile {
		return emit(openFileMsg{path: path})
	}
	if playlistfile.IsPlaylist(path) {
		paths, err := p.reader.Load(path)
		if err != nil {
			return emit(errMsg(err))
		}
		return emit(openPlaylistMsg{paths: paths})
	}
	if !lo.Contains(p.chosen, path) {
		p.chosen = append(p.chosen, path)
	}
	return nil
}

func (p *picker) SetHeight(screenHeight int) {
	p.fp.SetHeight(pickerHeight(screenHeight))
}

func (p *picker) title() string {
	if p.mode == pickPlaylist {
		return "Open Playlist"
	}
	return "Open File"
}

func (p *picker) hint() string {
	if p.mode == pickPlaylist {
		return "enter:add  tab:play list  h:up  esc:cancel"
	}
	return "enter:open  h:up  esc:cancel"
}

func (p *picker) chosenNames() []string {
	return lo.Map(p.chosen, func(path string, _ int) string { return filepath.Base(path) })
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
