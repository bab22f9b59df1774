package playback

import (
	"errors"
	"fmt"
	"math"
	"time"

	"hydra/internal/media"
)

var (
	// ErrLoad is returned when a file cannot be opened as media.
	ErrLoad = errors.New("unable to load file")
	// ErrPlaylistTooShort is returned when a playlist has fewer than two entries.
	ErrPlaylistTooShort = errors.New("playlist must contain more than one media file")
	// ErrNoMedia is returned by queries that need a loaded session.
	ErrNoMedia = errors.New("no media loaded")
)

// Messages shown to the user.
const (
	MsgLoadFailed       = "Unable to load file"
	MsgPlaylistTooShort = "Playlist must contain more than one media file"
)

// SliderMax is the upper end of the progress slider range.
const SliderMax = 1000

// TransportState is derived on demand, never stored.
type TransportState int

const (
	Stopped TransportState = iota
	Playing
	Paused
)

func (s TransportState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Button is the action the play/pause button currently offers.
type Button int

const (
	ButtonPlay Button = iota
	ButtonPause
)

// Tooltip returns the hint shown next to the button.
func (b Button) Tooltip() string {
	if b == ButtonPause {
		return "Pause (SPACE BAR)"
	}
	return "Play (SPACE BAR)"
}

// RepeatTooltip returns the hint for the repeat indicator.
func RepeatTooltip(on bool) string {
	if on {
		return "Repeat ON (R)"
	}
	return "Repeat OFF (R)"
}

// View receives state updates from the controller. All calls happen on the
// UI goroutine.
type View interface {
	SetTitle(title string)
	SetDuration(label string)
	SetElapsed(label string)
	SetProgress(value int) // 0..SliderMax
	SetPlayButton(b Button)
	SetRepeat(on bool)
	SetVolume(v int)
	SetPlaylist(paths []string, index int)
	ShowError(msg string) // blocking until dismissed
	Notify(msg string)    // transient
}

// Recorder persists what was opened and where playback was left.
type Recorder interface {
	Record(entry media.HistoryEntry) error
	UpdatePosition(path string, pos time.Duration) error
}

// SubtitleFinder locates a sidecar subtitle for a media file. It returns an
// empty path when there is none.
type SubtitleFinder interface {
	Find(mediaPath string) (string, error)
}

// MediaProperties is what the info overlay shows about the current item.
type MediaProperties struct {
	media.Properties
	Title    string
	Path     string
	Duration time.Duration
}

// FormatClock renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// sliderValue scales an engine position fraction to the slider range.
func sliderValue(pos float64) int {
	if math.IsNaN(pos) || pos < 0 {
		return 0
	}
	if pos > 1 {
		return SliderMax
	}
	return int(math.Round(pos * SliderMax))
}
