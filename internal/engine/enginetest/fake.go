// Package enginetest provides an in-memory engine for tests.
package enginetest

import (
	"fmt"
	"time"

	"hydra/internal/engine"
	"hydra/internal/media"
)

// Fake is an engine.Engine that plays nothing. Tests register loadable
// items in Media and drive playback with Advance and End. Paths missing
// from Media fail like a file that does not exist; paths in Unreadable
// exist but fail to decode, dropping the loaded item as a real engine does.
type Fake struct {
	Media      map[string]media.Info
	Unreadable map[string]bool

	Surface engine.Surface
	Started bool
	Closed  bool

	Loaded    string
	Playing   bool
	Elapsed   time.Duration
	Vol       int
	Props     media.Properties
	Subtitles []string

	// Errors injected into the matching calls.
	TimeErr    error
	SetTimeErr error

	Calls []string
}

var _ engine.Engine = (*Fake)(nil)

// New returns a Fake that can load the given items.
func New(items ...media.Info) *Fake {
	f := &Fake{
		Media:      make(map[string]media.Info),
		Unreadable: make(map[string]bool),
		Props:      media.Properties{Rate: 1, Track: -1},
	}
	for _, it := range items {
		f.Media[it.Path] = it
	}
	return f
}

func (f *Fake) record(format string, args ...interface{}) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

// CallCount counts calls whose text equals call.
func (f *Fake) CallCount(call string) int {
	n := 0
	for _, c := range f.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// Duration of the loaded item.
func (f *Fake) Duration() time.Duration {
	return f.Media[f.Loaded].Duration
}

// Advance moves playback forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.Elapsed += d
	if dur := f.Duration(); f.Elapsed > dur {
		f.Elapsed = dur
	}
}

// End simulates the loaded item reaching its natural end.
func (f *Fake) End() {
	f.Elapsed = f.Duration()
	f.Playing = false
}

func (f *Fake) Name() string    { return "fake" }
func (f *Fake) Available() bool { return true }

func (f *Fake) Attach(s engine.Surface) error {
	f.record("attach")
	f.Surface = s
	return nil
}

func (f *Fake) Start() error {
	f.Started = true
	return nil
}

func (f *Fake) Close() error {
	f.Closed = true
	f.Playing = false
	return nil
}

func (f *Fake) Load(path string) (media.Info, error) {
	f.record("load %s", path)
	if f.Unreadable[path] {
		f.Loaded = ""
		f.Playing = false
		f.Elapsed = 0
		return media.Info{}, fmt.Errorf("%w: %s", engine.ErrUnsupportedMedia, path)
	}
	info, ok := f.Media[path]
	if !ok {
		return media.Info{}, fmt.Errorf("%w: %s", engine.ErrNotFound, path)
	}
	f.Loaded = path
	f.Playing = false
	f.Elapsed = 0
	return info, nil
}

func (f *Fake) Play() error {
	f.record("play")
	if f.Loaded == "" {
		return engine.ErrNoMedia
	}
	if f.Elapsed >= f.Duration() {
		f.Elapsed = 0
	}
	f.Playing = true
	return nil
}

func (f *Fake) Pause() error {
	f.record("pause")
	f.Playing = false
	return nil
}

func (f *Fake) Stop() error {
	f.record("stop")
	f.Playing = false
	f.Elapsed = 0
	return nil
}

func (f *Fake) Time() (time.Duration, error) {
	if f.TimeErr != nil {
		return 0, f.TimeErr
	}
	if f.Loaded == "" {
		return 0, engine.ErrNoMedia
	}
	return f.Elapsed, nil
}

func (f *Fake) SetTime(t time.Duration) error {
	f.record("settime %d", t.Milliseconds())
	if f.SetTimeErr != nil {
		return f.SetTimeErr
	}
	if f.Loaded == "" {
		return engine.ErrNoMedia
	}
	f.Elapsed = t
	return nil
}

func (f *Fake) Position() (float64, error) {
	dur := f.Duration()
	if f.Loaded == "" || dur == 0 {
		return 0, engine.ErrNoMedia
	}
	return float64(f.Elapsed) / float64(dur), nil
}

func (f *Fake) SetPosition(pos float64) error {
	f.record("setposition %.2f", pos)
	if f.Loaded == "" {
		return engine.ErrNoMedia
	}
	f.Elapsed = time.Duration(pos * float64(f.Duration()))
	return nil
}

func (f *Fake) Volume() (int, error) { return f.Vol, nil }

func (f *Fake) SetVolume(v int) error {
	f.record("volume %d", v)
	f.Vol = v
	return nil
}

func (f *Fake) IsPlaying() bool { return f.Playing }

func (f *Fake) Properties() (media.Properties, error) {
	if f.Loaded == "" {
		return media.Properties{}, engine.ErrNoMedia
	}
	return f.Props, nil
}

func (f *Fake) AddSubtitle(path string) error {
	f.record("subtitle %s", path)
	f.Subtitles = append(f.Subtitles, path)
	return nil
}
