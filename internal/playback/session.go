// Package playback owns what is playing: the current session, the playlist
// position and the play/pause/stop/repeat state. It turns user intents into
// engine calls and engine state into View updates.
package playback

import (
	"time"

	"github.com/google/uuid"

	"hydra/internal/media"
)

// Session is the loaded media item. A new Session is built for every
// successful load and replaces the previous one as a whole.
type Session struct {
	ID       string
	Path     string
	Title    string
	Duration time.Duration
	OpenedAt time.Time
}

func newSession(info media.Info, now time.Time) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Path:     info.Path,
		Title:    info.DisplayTitle(),
		Duration: info.Duration,
		OpenedAt: now,
	}
}

// Playlist is an ordered list of media paths with a current position.
// A playlist with one entry or fewer behaves as no playlist at all.
type Playlist struct {
	paths []string
	index int
}

// Len returns the number of entries.
func (p *Playlist) Len() int { return len(p.paths) }

// Index returns the 0-based current position.
func (p *Playlist) Index() int { return p.index }

// Paths returns a copy of the entries.
func (p *Playlist) Paths() []string {
	out := make([]string, len(p.paths))
	copy(out, p.paths)
	return out
}

// Active reports whether there is more than one entry.
func (p *Playlist) Active() bool { return len(p.paths) > 1 }

// Clear empties the playlist and resets the position.
func (p *Playlist) Clear() {
	p.paths = nil
	p.index = 0
}

func (p *Playlist) replace(paths []string) {
	p.paths = append([]string(nil), paths...)
	p.index = 0
}

// neighbour returns the entry delta steps from the current one. There is no
// wraparound: ok is false past either end or when the playlist is empty.
func (p *Playlist) neighbour(delta int) (path string, index int, ok bool) {
	index = p.index + delta
	if len(p.paths) == 0 || index < 0 || index >= len(p.paths) {
		return "", p.index, false
	}
	return p.paths[index], index, true
}
