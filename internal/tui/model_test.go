package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"hydra/internal/engine/enginetest"
	"hydra/internal/media"
	"hydra/internal/playback"
	"hydra/internal/playlistfile"
)

var library = []media.Info{
	{Path: "/media/a.mkv", Title: "Alpha", Duration: 10 * time.Minute},
	{Path: "/media/b.mkv", Title: "Bravo", Duration: 90 * time.Second},
}

const (
	pathA   = "/media/a.mkv"
	pathB   = "/media/b.mkv"
	missing = "/media/missing.avi"
)

var exts = []string{".mkv", ".mp4"}

func newTestModel(t *testing.T, opts Options) (Model, *enginetest.Fake) {
	t.Helper()
	eng := enginetest.New(library...)
	if opts.Playback == (playback.Options{}) {
		opts.Playback = playback.DefaultOptions()
	}
	if opts.Extensions == nil {
		opts.Extensions = exts
	}
	if opts.Reader == nil {
		opts.Reader = playlistfile.New(afero.NewMemMapFs(), exts)
	}
	m := NewModel(eng, opts)
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, eng
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func sendCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = send(t, m, keyMsg(k))
	}
	return m
}

// collect runs cmd and flattens batches. Only use it on commands that
// return immediately.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func TestInitOpensStartupMedia(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		file     string
		playlist []string
	}{
		{name: "nothing", opts: Options{}},
		{name: "single file", opts: Options{Files: []string{pathA}}, file: pathA},
		{name: "several files", opts: Options{Files: []string{pathA, pathB}}, playlist: []string{pathA, pathB}},
		{name: "playlist flag", opts: Options{Playlist: []string{pathB}}, playlist: []string{pathB}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(t, tt.opts)

			var file string
			var playlist []string
			for _, msg := range collect(m.Init()) {
				switch msg := msg.(type) {
				case openFileMsg:
					file = msg.path
				case openPlaylistMsg:
					playlist = msg.paths
				}
			}
			if file != tt.file {
				t.Errorf("opened file %q, want %q", file, tt.file)
			}
			if strings.Join(playlist, ",") != strings.Join(tt.playlist, ",") {
				t.Errorf("opened playlist %v, want %v", playlist, tt.playlist)
			}
		})
	}
}

func TestStartupResume(t *testing.T) {
	m, eng := newTestModel(t, Options{Files: []string{pathA}, ResumeAt: 2 * time.Minute})
	for _, msg := range collect(m.Init()) {
		if _, ok := msg.(openFileMsg); ok {
			m = send(t, m, msg)
		}
	}
	if eng.Elapsed != 2*time.Minute {
		t.Errorf("elapsed = %v, want 2m", eng.Elapsed)
	}
	if m.screen.elapsed != "00:02:00" {
		t.Errorf("elapsed label = %q", m.screen.elapsed)
	}
}

func TestKeyDispatch(t *testing.T) {
	tests := []struct {
		name  string
		setup func(eng *enginetest.Fake)
		keys  []string
		check func(t *testing.T, m Model, eng *enginetest.Fake)
	}{
		{
			name: "space pauses",
			keys: []string{" "},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if eng.Playing || m.ctrl.State() != playback.Paused {
					t.Errorf("state = %v, want paused", m.ctrl.State())
				}
				if m.screen.button != playback.ButtonPlay {
					t.Error("button should offer play")
				}
			},
		},
		{
			name: "space twice resumes",
			keys: []string{" ", " "},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if !eng.Playing || m.screen.button != playback.ButtonPause {
					t.Error("playback should resume")
				}
			},
		},
		{
			name: "stop",
			keys: []string{"S"},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if eng.Playing || m.ctrl.State() != playback.Stopped {
					t.Errorf("state = %v, want stopped", m.ctrl.State())
				}
				if m.screen.elapsed != "00:10:00" {
					t.Errorf("elapsed = %q, want the duration", m.screen.elapsed)
				}
			},
		},
		{
			name: "repeat",
			keys: []string{"r"},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if !m.ctrl.Repeat() || !m.screen.repeat {
					t.Error("repeat should be on")
				}
			},
		},
		{
			name: "volume up",
			keys: []string{"up"},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if eng.Vol != 75 || m.screen.volume != 75 {
					t.Errorf("volume = %d / %d, want 75", eng.Vol, m.screen.volume)
				}
			},
		},
		{
			name: "volume down",
			keys: []string{"down", "down"},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if eng.Vol != 60 {
					t.Errorf("volume = %d, want 60", eng.Vol)
				}
			},
		},
		{
			name: "forward",
			keys: []string{"right"},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if eng.Elapsed != 5*time.Second {
					t.Errorf("elapsed = %v, want 5s", eng.Elapsed)
				}
			},
		},
		{
			name:  "backward",
			setup: func(eng *enginetest.Fake) { eng.Elapsed = 30 * time.Second },
			keys:  []string{"left"},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if eng.Elapsed != 25*time.Second {
					t.Errorf("elapsed = %v, want 25s", eng.Elapsed)
				}
			},
		},
		{
			name: "digit seeks",
			keys: []string{"5"},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if eng.CallCount("setposition 0.50") != 1 {
					t.Errorf("calls = %v, want setposition 0.50", eng.Calls)
				}
				if m.screen.progress != 500 {
					t.Errorf("progress = %d, want 500", m.screen.progress)
				}
			},
		},
		{
			name: "next without playlist",
			keys: []string{"n", "b"},
			check: func(t *testing.T, m Model, eng *enginetest.Fake) {
				if eng.CallCount("load "+pathA) != 1 {
					t.Errorf("calls = %v, want a single load", eng.Calls)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, eng := newTestModel(t, Options{})
			m = send(t, m, openFileMsg{path: pathA})
			if tt.setup != nil {
				tt.setup(eng)
			}
			m = press(t, m, tt.keys...)
			tt.check(t, m, eng)
		})
	}
}

func TestPlaylistNavigation(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = send(t, m, openPlaylistMsg{paths: []string{pathA, pathB}})

	m = press(t, m, "N")
	if s := m.ctrl.Session(); s == nil || s.Path != pathB {
		t.Fatalf("after next session = %+v, want %s", s, pathB)
	}
	if m.screen.index != 1 || m.screen.title != "Bravo" {
		t.Errorf("screen = index %d title %q", m.screen.index, m.screen.title)
	}

	m = press(t, m, "B")
	if s := m.ctrl.Session(); s.Path != pathA {
		t.Errorf("after previous session = %s, want %s", s.Path, pathA)
	}
	if !strings.Contains(m.View(), "Playlist 1/2") {
		t.Error("view should list the playlist")
	}
}

func TestTickRearm(t *testing.T) {
	m, eng := newTestModel(t, Options{})

	m, cmd := sendCmd(t, m, openFileMsg{path: pathA})
	if cmd == nil || !m.tickPending {
		t.Fatal("opening a file should arm the tick")
	}

	eng.Advance(90 * time.Second)
	m, cmd = sendCmd(t, m, tickMsg(time.Now()))
	if cmd == nil || !m.tickPending {
		t.Error("tick should re-arm while playing")
	}
	if m.screen.elapsed != "00:01:30" {
		t.Errorf("elapsed = %q, want 00:01:30", m.screen.elapsed)
	}
	if m.screen.progress != 150 {
		t.Errorf("progress = %d, want 150", m.screen.progress)
	}

	eng.End()
	m = send(t, m, tickMsg(time.Now()))
	if m.tickPending {
		t.Error("tick should stop after the end of media")
	}
	if m.ctrl.State() != playback.Stopped {
		t.Errorf("state = %v, want stopped", m.ctrl.State())
	}

	// Resuming starts the timer again.
	m = press(t, m, " ")
	if !m.tickPending || !m.ctrl.Polling() {
		t.Error("play should re-arm the tick")
	}
}

func TestTickAdvancesPlaylist(t *testing.T) {
	m, eng := newTestModel(t, Options{})
	m = send(t, m, openPlaylistMsg{paths: []string{pathA, pathB}})

	eng.End()
	m = send(t, m, tickMsg(time.Now()))

	if s := m.ctrl.Session(); s == nil || s.Path != pathB {
		t.Fatalf("session = %+v, want %s", s, pathB)
	}
	if !m.tickPending || !eng.Playing {
		t.Error("next item should be playing with the tick armed")
	}
}

func TestPausedTickStops(t *testing.T) {
	m, _ := newTestModel(t, Options{})
	m = send(t, m, openFileMsg{path: pathA})
	m = press(t, m, " ")

	m = send(t, m, tickMsg(time.Now()))
	if m.tickPending || m.ctrl.Polling() {
		t.Error("tick should stop while paused")
	}
	if m.ctrl.State() != playback.Paused {
		t.Errorf("state = %v, want paused", m.ctrl.State())
	}
}

func TestLoadFailureDialog(t *testing.T) {
	m, eng := newTestModel(t, Options{})
	m = send(t, m, openFileMsg{path: missing})

	if m.screen.dialog != playback.MsgLoadFailed {
		t.Fatalf("dialog = %q, want %q", m.screen.dialog, playback.MsgLoadFailed)
	}
	if !strings.Contains(m.View(), playback.MsgLoadFailed) {
		t.Error("view should show the error dialog")
	}

	// The dialog blocks other keys.
	m = press(t, m, " ", "r")
	if eng.CallCount("play") != 0 || m.ctrl.Repeat() {
		t.Error("keys should be ignored while the dialog is open")
	}

	m = press(t, m, "enter")
	if m.screen.dialog != "" {
		t.Error("enter should dismiss the dialog")
	}
	if m.ctrl.Session() != nil {
		t.Error("failed load should not create a session")
	}
}

func TestShortPlaylistNotice(t *testing.T) {
	m, _ := newTestModel(t, Options{})

	m, cmd := sendCmd(t, m, openPlaylistMsg{paths: []string{pathA}})
	if got := m.screen.activeNotice(); got != playback.MsgPlaylistTooShort {
		t.Fatalf("notice = %q, want %q", got, playback.MsgPlaylistTooShort)
	}
	if cmd == nil {
		t.Error("notice should schedule its own removal")
	}
	if m.screen.dialog != "" {
		t.Error("a short playlist is not a blocking error")
	}
	if !strings.Contains(m.View(), playback.MsgPlaylistTooShort) {
		t.Error("status bar should show the notice")
	}

	// A stale clear does not remove a newer notice.
	id := m.screen.noticeID
	m = send(t, m, clearNoticeMsg{id: id - 1})
	if m.screen.activeNotice() == "" {
		t.Error("stale clear removed the notice")
	}
	m = send(t, m, clearNoticeMsg{id: id})
	if m.screen.activeNotice() != "" {
		t.Error("notice should be cleared")
	}
}

func TestNoticeExpires(t *testing.T) {
	s := newScreen()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Notify("hello")
	if s.activeNotice() != "hello" {
		t.Fatal("notice should be active")
	}
	now = now.Add(noticeDuration + time.Second)
	if s.activeNotice() != "" {
		t.Error("notice should expire")
	}
}

func TestOverlays(t *testing.T) {
	m, eng := newTestModel(t, Options{})

	m = press(t, m, "?")
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("? should open the help overlay")
	}
	m = press(t, m, "r")
	if m.ctrl.Repeat() {
		t.Error("keys should not reach the player behind the help")
	}
	m = press(t, m, "esc")
	if m.showHelp {
		t.Error("esc should close the help")
	}

	m = press(t, m, "i")
	if !m.showProps || m.propsErr == nil {
		t.Fatal("properties without media should report an error")
	}
	m = press(t, m, "i")

	eng.Props = media.Properties{Width: 1920, Height: 1080, FPS: 24, Rate: 1, AspectRatio: "16:9", Scale: 1, Track: 0, TrackCount: 1}
	m = send(t, m, openFileMsg{path: pathA})
	m = press(t, m, "i")
	view := m.View()
	for _, want := range []string{"Media Properties", "Alpha", "1920 x 1080", "16:9", "00:10:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("properties view missing %q", want)
		}
	}
}

func TestMouseSeek(t *testing.T) {
	m, eng := newTestModel(t, Options{})
	m = send(t, m, openFileMsg{path: pathA})

	lines := strings.Split(m.View(), "\n")
	if !strings.Contains(lines[barRow], "00:10:00") {
		t.Fatalf("row %d = %q, want the progress bar", barRow, lines[barRow])
	}

	x, width := m.barLayout()
	click := func(col, row int) {
		m = send(t, m, tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	}

	click(x+width-1, barRow)
	if eng.CallCount("setposition 1.00") != 1 {
		t.Errorf("calls = %v, want setposition 1.00", eng.Calls)
	}
	click(x, barRow)
	if eng.CallCount("setposition 0.00") != 1 {
		t.Errorf("calls = %v, want setposition 0.00", eng.Calls)
	}

	before := len(eng.Calls)
	click(x+3, barRow+1)
	click(x-1, barRow)
	if len(eng.Calls) != before {
		t.Errorf("clicks outside the bar seeked: %v", eng.Calls[before:])
	}
}

func TestQuitShutsDown(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m, eng := newTestModel(t, Options{})
			m = send(t, m, openFileMsg{path: pathA})

			m, cmd := sendCmd(t, m, keyMsg(k))
			if cmd == nil {
				t.Fatal("quit should return a command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("quit command should be tea.Quit")
			}
			if !eng.Closed || eng.Playing {
				t.Error("engine should be stopped and closed")
			}
			if m.View() != "" {
				t.Error("view should be empty after quit")
			}
		})
	}
}

// mediaDir creates files in a temporary directory and registers the media
// ones with the engine.
func mediaDir(t *testing.T, eng *enginetest.Fake, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if filepath.Ext(name) == ".mkv" {
			eng.Media[path] = media.Info{Path: path, Title: name, Duration: time.Minute}
		}
	}
	return dir
}

// openDialog presses k and feeds the directory listing to the picker.
func openDialog(t *testing.T, m Model, k string) Model {
	t.Helper()
	m, cmd := sendCmd(t, m, keyMsg(k))
	if m.picker == nil {
		t.Fatalf("%s should open a picker", k)
	}
	for _, msg := range collect(cmd) {
		m = send(t, m, msg)
	}
	return m
}

// pressPicker sends k and delivers whatever the picker emits.
func pressPicker(t *testing.T, m Model, k string) Model {
	t.Helper()
	m, cmd := sendCmd(t, m, keyMsg(k))
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case openFileMsg, openPlaylistMsg, pickerClosedMsg, errMsg:
			m = send(t, m, msg)
		}
	}
	return m
}

func TestOpenFileDialog(t *testing.T) {
	eng := enginetest.New()
	dir := mediaDir(t, eng, map[string]string{"a.mkv": "", "b.mkv": "", "notes.txt": ""})

	m := NewModel(eng, Options{Playback: playback.DefaultOptions(), Extensions: exts, StartDir: dir})
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = openDialog(t, m, "f")
	if !strings.Contains(m.View(), "Open File") {
		t.Error("view should show the open file dialog")
	}

	m = pressPicker(t, m, "j")
	m = pressPicker(t, m, "enter")
	if m.picker != nil {
		t.Error("picker should close after a file is chosen")
	}
	want := filepath.Join(dir, "b.mkv")
	if s := m.ctrl.Session(); s == nil || s.Path != want {
		t.Fatalf("session = %+v, want %s", s, want)
	}
	if !eng.Playing {
		t.Error("chosen file should play")
	}
}

func TestOpenFileDialogCancel(t *testing.T) {
	eng := enginetest.New()
	dir := mediaDir(t, eng, map[string]string{"a.mkv": ""})

	m := NewModel(eng, Options{Playback: playback.DefaultOptions(), Extensions: exts, StartDir: dir})
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = openDialog(t, m, "F")
	m = pressPicker(t, m, "esc")
	if m.picker != nil {
		t.Error("esc should close the picker")
	}
	if m.ctrl.Session() != nil {
		t.Error("cancel should not open anything")
	}
}

func TestOpenPlaylistDialog(t *testing.T) {
	eng := enginetest.New()
	dir := mediaDir(t, eng, map[string]string{"a.mkv": "", "b.mkv": "", "c.mkv": ""})

	m := NewModel(eng, Options{Playback: playback.DefaultOptions(), Extensions: exts, StartDir: dir})
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = openDialog(t, m, "a")
	m = pressPicker(t, m, "enter")
	m = pressPicker(t, m, "j")
	m = pressPicker(t, m, "j")
	m = pressPicker(t, m, "enter")
	m = pressPicker(t, m, "enter") // duplicates are ignored
	if got := len(m.picker.chosen); got != 2 {
		t.Fatalf("chosen = %v, want 2 entries", m.picker.chosen)
	}

	m = pressPicker(t, m, "tab")
	if m.picker != nil {
		t.Fatal("tab should submit the playlist")
	}
	paths, index := m.ctrl.Playlist()
	want := []string{filepath.Join(dir, "a.mkv"), filepath.Join(dir, "c.mkv")}
	if strings.Join(paths, ",") != strings.Join(want, ",") || index != 0 {
		t.Errorf("playlist = %v at %d, want %v at 0", paths, index, want)
	}
}

func TestOpenPlaylistDialogSingleEntry(t *testing.T) {
	eng := enginetest.New()
	dir := mediaDir(t, eng, map[string]string{"a.mkv": ""})

	m := NewModel(eng, Options{Playback: playback.DefaultOptions(), Extensions: exts, StartDir: dir})
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = openDialog(t, m, "a")
	m = pressPicker(t, m, "enter")
	m = pressPicker(t, m, "tab")

	if m.screen.activeNotice() != playback.MsgPlaylistTooShort {
		t.Errorf("notice = %q, want %q", m.screen.activeNotice(), playback.MsgPlaylistTooShort)
	}
	if m.ctrl.Session() != nil {
		t.Error("a single entry should not start playback")
	}
}

func TestOpenPlaylistDialogPlaylistFile(t *testing.T) {
	eng := enginetest.New()
	dir := mediaDir(t, eng, map[string]string{
		"a.mkv":    "",
		"b.mkv":    "",
		"list.m3u": "#EXTM3U\nb.mkv\na.mkv\n",
	})

	m := NewModel(eng, Options{
		Playback:   playback.DefaultOptions(),
		Extensions: exts,
		Reader:     playlistfile.NewOS(exts),
		StartDir:   dir,
	})
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m = openDialog(t, m, "a")
	m = pressPicker(t, m, "j")
	m = pressPicker(t, m, "j")
	m = pressPicker(t, m, "enter")

	paths, _ := m.ctrl.Playlist()
	want := []string{filepath.Join(dir, "b.mkv"), filepath.Join(dir, "a.mkv")}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("playlist = %v, want %v", paths, want)
	}
}

func TestWindowTitle(t *testing.T) {
	if got := windowTitle(""); got != "hydra" {
		t.Errorf("windowTitle(\"\") = %q", got)
	}
	if got := windowTitle("Alpha"); got != "Alpha - hydra" {
		t.Errorf("windowTitle(Alpha) = %q", got)
	}
}
