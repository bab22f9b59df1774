// Package tui is the terminal front end of the player. The Bubble Tea
// update loop is the only caller of the playback controller; the
// synchronizer runs as a tick message that is re-armed only while the
// controller's timer is on.
package tui

import (
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"hydra/internal/engine"
	"hydra/internal/logging"
	"hydra/internal/playback"
	"hydra/internal/playlistfile"
)

// Options configures the player screen.
type Options struct {
	Playback     playback.Options
	Recorder     playback.Recorder
	Subtitles    playback.SubtitleFinder
	PollInterval time.Duration

	// Extensions are the media types offered by the open dialogs.
	Extensions []string
	Reader     *playlistfile.Reader
	StartDir   string

	// Files are opened at startup: one file plays alone, several form a
	// playlist. Playlist, when set, is always opened as a playlist.
	Files    []string
	Playlist []string

	// ResumeAt is where a single startup file continues from.
	ResumeAt time.Duration
}

// Model is the main TUI model
type Model struct {
	ctrl   *playback.Controller
	screen *screen
	opts   Options
	log    *logrus.Entry

	keys keyMap
	help help.Model
	bar  progress.Model

	width  int
	height int

	// Overlays
	picker    *picker
	showHelp  bool
	showProps bool
	props     playback.MediaProperties
	propsErr  error

	tickPending bool
	quitting    bool
}

// Messages
type tickMsg time.Time
type errMsg error
type clearNoticeMsg struct{ id int }

// NewModel builds the controller around eng and the screen it reports to.
func NewModel(eng engine.Engine, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 200 * time.Millisecond
	}
	if opts.Reader == nil {
		opts.Reader = playlistfile.NewOS(opts.Extensions)
	}
	if opts.StartDir == "" {
		opts.StartDir = "."
	}

	scr := newScreen()
	ctrl := playback.New(eng, scr, opts.Playback)
	if opts.Recorder != nil {
		ctrl.SetRecorder(opts.Recorder)
	}
	if opts.Subtitles != nil {
		ctrl.SetSubtitleFinder(opts.Subtitles)
	}
	ctrl.Init()

	return Model{
		ctrl:   ctrl,
		screen: scr,
		opts:   opts,
		log:    logging.WithComponent("tui"),
		keys:   newKeyMap(),
		help:   help.New(),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Controller exposes the playback controller.
func (m Model) Controller() *playback.Controller {
	return m.ctrl
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.PollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func clearNoticeAfter(id int) tea.Cmd {
	return tea.Tick(noticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{id: id}
	})
}

// Init opens the startup media, if any.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.SetWindowTitle(windowTitle(""))}
	switch {
	case len(m.opts.Playlist) > 0:
		cmds = append(cmds, emit(openPlaylistMsg{paths: m.opts.Playlist}))
	case len(m.opts.Files) == 1:
		cmds = append(cmds, emit(openFileMsg{path: m.opts.Files[0], resume: m.opts.ResumeAt}))
	case len(m.opts.Files) > 1:
		cmds = append(cmds, emit(openPlaylistMsg{paths: m.opts.Files}))
	}
	return tea.Batch(cmds...)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	if m.quitting {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.sync())
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.picker != nil {
			m.picker.SetHeight(msg.Height)
		}
		return m, nil

	case tickMsg:
		m.tickPending = false
		if m.ctrl.Tick() {
			m.tickPending = true
			return m, m.tick()
		}
		return m, nil

	case openFileMsg:
		m.picker = nil
		if err := m.ctrl.OpenFile(msg.path); err != nil {
			m.log.WithError(err).Debug("open file")
			return m, nil
		}
		m.ctrl.Resume(msg.resume)
		return m, nil

	case openPlaylistMsg:
		m.picker = nil
		if err := m.ctrl.OpenPlaylist(msg.paths); err != nil {
			m.log.WithError(err).Debug("open playlist")
		}
		return m, nil

	case pickerClosedMsg:
		m.picker = nil
		return m, nil

	case clearNoticeMsg:
		m.screen.clearNotice(msg.id)
		return m, nil

	case errMsg:
		m.picker = nil
		m.log.WithError(msg).Warn("open dialog")
		m.screen.Notify("Error: " + msg.Error())
		return m, nil
	}

	// Directory listings and other picker internals.
	if m.picker != nil {
		return m, m.picker.Update(msg)
	}
	return m, nil
}

// sync arms the synchronizer tick when the controller started its timer and
// flushes side effects the controller left on the screen.
func (m *Model) sync() tea.Cmd {
	var cmds []tea.Cmd
	if m.ctrl.Polling() && !m.tickPending {
		m.tickPending = true
		cmds = append(cmds, m.tick())
	}
	if m.screen.noticeArmed {
		m.screen.noticeArmed = false
		cmds = append(cmds, clearNoticeAfter(m.screen.noticeID))
	}
	if m.screen.titleChanged {
		m.screen.titleChanged = false
		cmds = append(cmds, tea.SetWindowTitle(windowTitle(m.screen.title)))
	}
	return tea.Batch(cmds...)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (Model, tea.Cmd) {
	// Global keys (always work)
	if key.Matches(msg, m.keys.forceQuit) {
		return m.quit()
	}

	// The error dialog blocks everything else.
	if m.screen.dialog != "" {
		switch msg.String() {
		case "enter", "esc":
			m.screen.dialog = ""
		}
		return m, nil
	}

	if m.picker != nil {
		return m, m.picker.Update(msg)
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc":
			m.showHelp = false
		}
		return m, nil
	}

	if m.showProps {
		switch msg.String() {
		case "i", "esc":
			m.showProps = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.help):
		m.showHelp = true
	case key.Matches(msg, m.keys.properties):
		m.showProps = true
		m.props, m.propsErr = m.ctrl.Properties()
	case key.Matches(msg, m.keys.openFile):
		return m.openPicker(pickFile)
	case key.Matches(msg, m.keys.openPlaylist):
		return m.openPicker(pickPlaylist)
	case key.Matches(msg, m.keys.playPause):
		m.ctrl.PlayPause()
	case key.Matches(msg, m.keys.stop):
		m.ctrl.ManualStop()
	case key.Matches(msg, m.keys.repeat):
		m.ctrl.ToggleRepeat()
	case key.Matches(msg, m.keys.next):
		if err := m.ctrl.NextMedia(); err != nil {
			m.log.WithError(err).Debug("next")
		}
	case key.Matches(msg, m.keys.previous):
		if err := m.ctrl.PreviousMedia(); err != nil {
			m.log.WithError(err).Debug("previous")
		}
	case key.Matches(msg, m.keys.volumeUp):
		m.ctrl.VolumeUp()
	case key.Matches(msg, m.keys.volumeDown):
		m.ctrl.VolumeDown()
	case key.Matches(msg, m.keys.forward):
		m.ctrl.Forward()
	case key.Matches(msg, m.keys.backward):
		m.ctrl.Backward()
	case key.Matches(msg, m.keys.jump):
		digit := msg.String()[0] - '0'
		m.ctrl.Seek(float64(digit) / 10)
	}
	return m, nil
}

// handleMouse seeks when the progress bar is clicked.
func (m Model) handleMouse(msg tea.MouseMsg) Model {
	if m.picker != nil || m.showHelp || m.showProps || m.screen.dialog != "" {
		return m
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft || msg.Y != barRow {
		return m
	}
	x, width := m.barLayout()
	if msg.X < x || msg.X >= x+width {
		return m
	}
	m.ctrl.Seek(float64(msg.X-x) / float64(width-1))
	return m
}

func (m Model) openPicker(mode pickerMode) (Model, tea.Cmd) {
	m.picker = newPicker(mode, m.pickerDir(), m.opts.Extensions, m.opts.Reader, m.height)
	return m, m.picker.Init()
}

// pickerDir starts the dialogs next to the current item.
func (m Model) pickerDir() string {
	if s := m.ctrl.Session(); s != nil {
		return filepath.Dir(s.Path)
	}
	return m.opts.StartDir
}

// quit saves the position and stops the engine before leaving.
func (m Model) quit() (Model, tea.Cmd) {
	m.quitting = true
	if err := m.ctrl.Shutdown(); err != nil {
		m.log.WithError(err).Warn("shutdown")
	}
	return m, tea.Quit
}

func windowTitle(title string) string {
	if title == "" {
		return "hydra"
	}
	return title + " - hydra"
}

// Run starts the TUI application
func Run(eng engine.Engine, opts Options) error {
	model := NewModel(eng, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	final, err := p.Run()
	if fm, ok := final.(Model); !ok || !fm.quitting {
		if serr := model.ctrl.Shutdown(); serr != nil {
			model.log.WithError(serr).Warn("shutdown")
		}
	}
	return err
}
