// Package engine drives the external media engine that does all decoding
// and rendering. Engines run as long-lived child processes controlled over
// an IPC channel; every process is started with exec.Command and an explicit
// argument slice, never through a shell.
package engine

import (
	"errors"
	"strings"
	"time"

	"hydra/internal/media"
)

// Errors shared by engine implementations.
var (
	ErrNotRunning = errors.New("engine not running")
	ErrNoMedia    = errors.New("no media loaded")
	// ErrNotFound is returned by Load when path is not a media file on disk.
	// The engine is left untouched and keeps its current item.
	ErrNotFound         = errors.New("media file not found")
	ErrUnsupportedMedia = errors.New("unsupported or unreadable media")
	ErrTimeout          = errors.New("engine request timed out")
	ErrUnsupported      = errors.New("not supported by engine")
)

// Engine is the interface for media engine implementations.
type Engine interface {
	// Name returns the engine name.
	Name() string

	// Available checks if the engine binary exists in PATH.
	Available() bool

	// Attach sets the native window the engine renders into. It must be
	// called before Start; a nil surface lets the engine open its own window.
	Attach(s Surface) error

	// Start launches the engine process. Close stops it.
	Start() error
	Close() error

	// Load replaces the current item with path and parses its metadata.
	// The item is left paused at the beginning.
	Load(path string) (media.Info, error)

	Play() error
	Pause() error
	Stop() error

	Time() (time.Duration, error)
	SetTime(t time.Duration) error

	// Position is the playback fraction in [0, 1].
	Position() (float64, error)
	SetPosition(pos float64) error

	Volume() (int, error)
	SetVolume(v int) error

	// IsPlaying reports whether media is currently advancing. Engine errors
	// read as not playing.
	IsPlaying() bool

	Properties() (media.Properties, error)

	// AddSubtitle loads an external subtitle file for the current item.
	AddSubtitle(path string) error
}

// Options configures an engine process.
type Options struct {
	Path      string        // Binary override; empty uses the engine name from PATH
	Timeout   time.Duration // Deadline for a single IPC request
	Volume    int           // Initial volume
	VolumeMax int
}

func (o Options) binary(name string) string {
	if o.Path != "" {
		return o.Path
	}
	return name
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 3 * time.Second
	}
	return o.Timeout
}

// New creates an engine by name.
func New(name string, opts Options) Engine {
	switch strings.ToLower(name) {
	case "vlc":
		return NewVLC(opts)
	default:
		return NewMPV(opts) // Default to mpv
	}
}
