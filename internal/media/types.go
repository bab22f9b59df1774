// Package media defines shared types for the hydra application.
package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Info is the metadata the engine parsed from a loaded media item.
type Info struct {
	Path     string        // Local path the item was loaded from
	Title    string        // Title tag, or the file name when untagged
	Duration time.Duration // Zero when the engine could not determine it
}

// DisplayTitle returns the title, falling back to the file's base name.
func (i Info) DisplayTitle() string {
	if strings.TrimSpace(i.Title) != "" {
		return i.Title
	}
	return filepath.Base(i.Path)
}

// Properties describes the video stream of the loaded item.
type Properties struct {
	Width       int
	Height      int
	FPS         float64
	Rate        float64 // Playback speed, 1.0 is normal
	AspectRatio string
	Scale       float64
	Track       int // Selected video track, -1 when none
	TrackCount  int
}

// Resolution formats the frame size as "W x H".
func (p Properties) Resolution() string {
	if p.Width == 0 || p.Height == 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d x %d", p.Width, p.Height)
}

// HistoryEntry represents a single entry in the playback history.
type HistoryEntry struct {
	Path      string
	Title     string
	Duration  time.Duration
	Position  time.Duration // Last playback position
	PlayCount int
	OpenedAt  time.Time
}

// Subtitle is a subtitle file found next to a media file.
type Subtitle struct {
	Language string // e.g. "en", "english"; empty when the file name has no tag
	Label    string // Display label, e.g. "movie.en.forced.srt"
	Path     string
}
