package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"hydra/internal/config"
	"hydra/internal/engine"
	"hydra/internal/logging"
	"hydra/internal/media"
)

// Options are the tunables the controller reads from configuration.
type Options struct {
	Volume     int
	VolumeMin  int
	VolumeMax  int
	VolumeStep int
	SeekStep   time.Duration
	Repeat     bool
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig extracts controller options from a validated config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Volume:     cfg.Volume,
		VolumeMin:  cfg.VolumeMin,
		VolumeMax:  cfg.VolumeMax,
		VolumeStep: cfg.VolumeStep,
		SeekStep:   cfg.SeekStep(),
		Repeat:     cfg.Repeat,
	}
}

// Controller is the single owner of playback state. It is not safe for
// concurrent use; the TUI calls it only from its update loop.
type Controller struct {
	engine engine.Engine
	view   View
	opts   Options

	recorder  Recorder
	subtitles SubtitleFinder
	log       *logrus.Entry
	now       func() time.Time

	session  *Session
	playlist Playlist

	repeat        bool
	paused        bool
	manualStopped bool
	polling       bool
	volume        int
}

// New creates a controller driving eng and reporting to view.
func New(eng engine.Engine, view View, opts Options) *Controller {
	return &Controller{
		engine: eng,
		view:   view,
		opts:   opts,
		log:    logging.WithComponent("playback"),
		now:    time.Now,
		repeat: opts.Repeat,
		volume: opts.Volume,
	}
}

// SetRecorder installs the history store. nil disables recording.
func (c *Controller) SetRecorder(r Recorder) { c.recorder = r }

// SetSubtitleFinder installs the sidecar subtitle lookup. nil disables it.
func (c *Controller) SetSubtitleFinder(f SubtitleFinder) { c.subtitles = f }

// Init pushes the initial state to the view and applies the starting volume.
func (c *Controller) Init() {
	c.view.SetPlayButton(ButtonPlay)
	c.view.SetRepeat(c.repeat)
	c.view.SetDuration(FormatClock(0))
	c.view.SetElapsed(FormatClock(0))
	c.view.SetProgress(0)
	c.SetVolume(c.volume)
}

// Session returns the current session, or nil when nothing was opened.
func (c *Controller) Session() *Session {
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Playlist returns the playlist entries and the current index.
func (c *Controller) Playlist() ([]string, int) {
	return c.playlist.Paths(), c.playlist.Index()
}

// Repeat reports whether repeat mode is on.
func (c *Controller) Repeat() bool { return c.repeat }

// Volume returns the last volume sent to the engine.
func (c *Controller) Volume() int { return c.volume }

// Polling reports whether the synchronizer timer is running.
func (c *Controller) Polling() bool { return c.polling }

// State derives the transport state from the engine and the local flags.
func (c *Controller) State() TransportState {
	switch {
	case c.session == nil:
		return Stopped
	case c.engine.IsPlaying():
		return Playing
	case c.paused:
		return Paused
	default:
		return Stopped
	}
}

// OpenFile replaces whatever is loaded with path and starts playing it.
// On failure the user sees a blocking error and nothing changes.
func (c *Controller) OpenFile(path string) error {
	s, err := c.load(path)
	if err != nil {
		c.view.ShowError(MsgLoadFailed)
		return err
	}
	c.playlist.Clear()
	c.install(s)
	c.play()
	return nil
}

// OpenPlaylist loads paths as a playlist and starts the first entry.
// Fewer than two entries is rejected with a notification.
func (c *Controller) OpenPlaylist(paths []string) error {
	if len(paths) <= 1 {
		c.view.Notify(MsgPlaylistTooShort)
		return ErrPlaylistTooShort
	}
	s, err := c.load(paths[0])
	if err != nil {
		c.view.ShowError(MsgLoadFailed)
		return err
	}
	c.playlist.replace(paths)
	c.install(s)
	c.play()
	return nil
}

// NextMedia moves to the following playlist entry. It does nothing at the
// end of the playlist or without one.
func (c *Controller) NextMedia() error {
	return c.step(1)
}

// PreviousMedia moves to the preceding playlist entry. It does nothing at
// the start of the playlist or without one.
func (c *Controller) PreviousMedia() error {
	return c.step(-1)
}

func (c *Controller) step(delta int) error {
	path, index, ok := c.playlist.neighbour(delta)
	if !ok {
		return nil
	}
	s, err := c.load(path)
	if err != nil {
		c.view.ShowError(MsgLoadFailed)
		return err
	}
	c.playlist.index = index
	c.install(s)
	c.play()
	return nil
}

// load asks the engine for path and builds a session from the result.
// Controller state is only touched by the caller after this succeeds.
func (c *Controller) load(path string) (*Session, error) {
	var resume time.Duration
	wasPlaying := false
	if c.session != nil {
		resume, _ = c.engine.Time()
		wasPlaying = c.engine.IsPlaying()
	}

	info, err := c.engine.Load(path)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("load failed")
		// A missing file is rejected before the engine drops its item.
		if !errors.Is(err, engine.ErrNotFound) {
			c.restore(resume, wasPlaying)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	if info.Path == "" {
		info.Path = path
	}
	if c.session != nil {
		c.savePosition(c.session.Path, resume)
	}
	return newSession(info, c.now()), nil
}

// restore puts the previous session back into the engine after a failed
// load, since the engine may have dropped it already.
func (c *Controller) restore(at time.Duration, wasPlaying bool) {
	if c.session == nil {
		return
	}
	if _, err := c.engine.Load(c.session.Path); err != nil {
		c.log.WithError(err).WithField("path", c.session.Path).Warn("could not restore previous media")
		return
	}
	c.attachSubtitle(c.session.Path)
	if at > 0 {
		if err := c.engine.SetTime(at); err != nil {
			c.log.WithError(err).Debug("restore position")
		}
	}
	if wasPlaying {
		if err := c.engine.Play(); err != nil {
			c.log.WithError(err).Debug("restore playback")
		}
	}
}

// savePosition stores where path was left for later resumption.
func (c *Controller) savePosition(path string, pos time.Duration) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.UpdatePosition(path, pos); err != nil {
		c.log.WithError(err).Warn("saving position")
	}
}

// install makes s the current session and refreshes the view.
func (c *Controller) install(s *Session) {
	c.session = s
	c.log.WithFields(logrus.Fields{"path": s.Path, "session": s.ID}).Info("opened")

	c.view.SetTitle(s.Title)
	c.view.SetDuration(FormatClock(s.Duration))
	c.view.SetElapsed(FormatClock(0))
	c.view.SetProgress(0)
	c.view.SetPlaylist(c.playlist.Paths(), c.playlist.Index())

	if c.recorder != nil {
		entry := media.HistoryEntry{Path: s.Path, Title: s.Title, Duration: s.Duration, OpenedAt: s.OpenedAt}
		if err := c.recorder.Record(entry); err != nil {
			c.log.WithError(err).Warn("recording history")
		}
	}
	c.attachSubtitle(s.Path)
}

func (c *Controller) attachSubtitle(mediaPath string) {
	if c.subtitles == nil {
		return
	}
	sub, err := c.subtitles.Find(mediaPath)
	if err != nil {
		c.log.WithError(err).Debug("subtitle lookup")
		return
	}
	if sub == "" {
		return
	}
	if err := c.engine.AddSubtitle(sub); err != nil {
		if errors.Is(err, engine.ErrUnsupported) {
			c.log.WithField("engine", c.engine.Name()).Debug("engine cannot load external subtitles")
			return
		}
		c.log.WithError(err).WithField("subtitle", sub).Warn("adding subtitle")
	}
}

// PlayPause toggles between playing and paused. Without media it does nothing.
func (c *Controller) PlayPause() {
	if c.session == nil {
		return
	}
	if c.engine.IsPlaying() {
		c.pause()
	} else {
		c.play()
	}
}

// play starts or resumes the engine. It clears the manual stop so that the
// end-of-media rules apply again, and starts the polling timer.
func (c *Controller) play() {
	if err := c.engine.Play(); err != nil {
		c.log.WithError(err).Debug("play")
		return
	}
	c.manualStopped = false
	c.paused = false
	c.polling = true
	c.view.SetPlayButton(ButtonPause)
}

func (c *Controller) pause() {
	if err := c.engine.Pause(); err != nil {
		c.log.WithError(err).Debug("pause")
		return
	}
	c.paused = true
	c.view.SetPlayButton(ButtonPlay)
}

// ManualStop stops playback on user request. Until the next play, a
// natural end neither repeats nor advances.
func (c *Controller) ManualStop() {
	c.manualStopped = true
	c.stop()
}

// stop halts the engine and shows the item as finished.
func (c *Controller) stop() {
	if err := c.engine.Stop(); err != nil {
		c.log.WithError(err).Debug("stop")
	}
	c.paused = false
	c.view.SetPlayButton(ButtonPlay)
	if c.session != nil {
		c.view.SetElapsed(FormatClock(c.session.Duration))
	}
}

// SetVolume clamps v to the configured range and applies it.
func (c *Controller) SetVolume(v int) {
	v = lo.Clamp(v, c.opts.VolumeMin, c.opts.VolumeMax)
	if err := c.engine.SetVolume(v); err != nil {
		c.log.WithError(err).Debug("set volume")
	}
	c.volume = v
	c.view.SetVolume(v)
}

// VolumeUp raises the volume by one step.
func (c *Controller) VolumeUp() { c.SetVolume(c.volume + c.opts.VolumeStep) }

// VolumeDown lowers the volume by one step.
func (c *Controller) VolumeDown() { c.SetVolume(c.volume - c.opts.VolumeStep) }

// Seek jumps to a fraction of the item, clamped to [0, 1].
func (c *Controller) Seek(fraction float64) {
	if c.session == nil {
		return
	}
	fraction = lo.Clamp(fraction, 0, 1)
	if err := c.engine.SetPosition(fraction); err != nil {
		c.log.WithError(err).Debug("seek")
		return
	}
	c.view.SetProgress(sliderValue(fraction))
}

// Forward skips ahead one seek step, never past duration minus one step.
// Engine errors are logged and otherwise ignored.
func (c *Controller) Forward() {
	if c.session == nil {
		return
	}
	t, err := c.engine.Time()
	if err != nil {
		c.log.WithError(err).Debug("forward")
		return
	}
	limit := c.session.Duration - c.opts.SeekStep
	if t >= limit {
		return
	}
	if err := c.engine.SetTime(lo.Min([]time.Duration{t + c.opts.SeekStep, limit})); err != nil {
		c.log.WithError(err).Debug("forward")
	}
}

// Backward skips back one seek step, never before the start.
// Engine errors are logged and otherwise ignored.
func (c *Controller) Backward() {
	t, err := c.engine.Time()
	if err != nil {
		c.log.WithError(err).Debug("backward")
		return
	}
	if err := c.engine.SetTime(lo.Max([]time.Duration{t - c.opts.SeekStep, 0})); err != nil {
		c.log.WithError(err).Debug("backward")
	}
}

// Resume jumps to at in the current item to continue where it was left.
// Positions within the last seek step of the end are ignored.
func (c *Controller) Resume(at time.Duration) {
	if c.session == nil || at <= 0 || at >= c.session.Duration-c.opts.SeekStep {
		return
	}
	if err := c.engine.SetTime(at); err != nil {
		c.log.WithError(err).Debug("resume")
		return
	}
	c.view.SetElapsed(FormatClock(at))
}

// ToggleRepeat flips repeat mode.
func (c *Controller) ToggleRepeat() {
	c.repeat = !c.repeat
	c.view.SetRepeat(c.repeat)
}

// Properties reports stream details of the current item.
func (c *Controller) Properties() (MediaProperties, error) {
	if c.session == nil {
		return MediaProperties{}, ErrNoMedia
	}
	props, err := c.engine.Properties()
	if err != nil {
		return MediaProperties{}, fmt.Errorf("reading media properties: %w", err)
	}
	return MediaProperties{
		Properties: props,
		Title:      c.session.Title,
		Path:       c.session.Path,
		Duration:   c.session.Duration,
	}, nil
}

// Shutdown saves the playback position, stops the engine and closes it.
func (c *Controller) Shutdown() error {
	if c.session != nil {
		if pos, err := c.engine.Time(); err == nil {
			c.savePosition(c.session.Path, pos)
		}
	}
	c.polling = false
	c.stop()
	if err := c.engine.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", c.engine.Name(), err)
	}
	return nil
}
