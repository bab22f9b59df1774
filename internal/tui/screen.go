package tui

import (
	"time"

	"hydra/internal/playback"
)

const noticeDuration = 5 * time.Second

// screen is what the controller draws into. The Bubble Tea model renders it
// on every View call; the controller only ever touches it from Update.
type screen struct {
	title    string
	duration string
	elapsed  string
	progress int
	button   playback.Button
	repeat   bool
	volume   int

	playlist []string
	index    int

	// dialog is a blocking error; it stays until dismissed.
	dialog string

	notice       string
	noticeExpiry time.Time
	noticeID     int
	noticeArmed  bool

	titleChanged bool

	now func() time.Time
}

var _ playback.View = (*screen)(nil)

func newScreen() *screen {
	return &screen{
		duration: playback.FormatClock(0),
		elapsed:  playback.FormatClock(0),
		now:      time.Now,
	}
}

func (s *screen) SetTitle(title string) {
	if title != s.title {
		s.titleChanged = true
	}
	s.title = title
}

func (s *screen) SetDuration(label string) { s.duration = label }
func (s *screen) SetElapsed(label string)  { s.elapsed = label }

func (s *screen) SetProgress(value int) {
	if value < 0 {
		value = 0
	}
	if value > playback.SliderMax {
		value = playback.SliderMax
	}
	s.progress = value
}

func (s *screen) SetPlayButton(b playback.Button) { s.button = b }
func (s *screen) SetRepeat(on bool)               { s.repeat = on }
func (s *screen) SetVolume(v int)                 { s.volume = v }

func (s *screen) SetPlaylist(paths []string, index int) {
	s.playlist = paths
	s.index = index
}

func (s *screen) ShowError(msg string) { s.dialog = msg }

// Notify shows msg in the status line for a few seconds.
func (s *screen) Notify(msg string) {
	s.notice = msg
	s.noticeExpiry = s.now().Add(noticeDuration)
	s.noticeID++
	s.noticeArmed = true
}

// activeNotice returns the notification if it has not expired.
func (s *screen) activeNotice() string {
	if s.notice == "" || s.now().After(s.noticeExpiry) {
		return ""
	}
	return s.notice
}

func (s *screen) clearNotice(id int) {
	if id == s.noticeID {
		s.notice = ""
	}
}

func (s *screen) fraction() float64 {
	return float64(s.progress) / playback.SliderMax
}
