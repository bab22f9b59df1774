package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"hydra/internal/logging"
	"hydra/internal/media"
)

// MPV implements the Engine interface for mpv.
// One idle mpv process lives for the whole session and is controlled
// through its JSON IPC server at a randomized path.
type MPV struct {
	opts    Options
	surface Surface

	proc    *process
	ipc     *ipcClient
	cleanup func()

	// Buffered lifecycle events (file-loaded, end-file) from the reader.
	eventsMu sync.Mutex
	events   chan ipcMessage

	loaded  string
	stopped bool
}

// NewMPV creates an mpv engine. Call Start before use.
func NewMPV(opts Options) *MPV {
	return &MPV{opts: opts}
}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool {
	_, err := exec.LookPath(m.opts.binary("mpv"))
	return err == nil
}

func (m *MPV) Attach(s Surface) error {
	if m.proc != nil {
		return fmt.Errorf("mpv: surface must be attached before start")
	}
	m.surface = s
	return nil
}

// args builds the mpv command line as an explicit slice.
func (m *MPV) args(addr string) []string {
	args := []string{
		"--idle=yes",
		"--input-ipc-server=" + addr,
		"--no-terminal",
		"--keep-open=no",
		"--sub-auto=no",
		"--title=hydra",
	}
	if m.opts.VolumeMax > 100 {
		args = append(args, "--volume-max="+strconv.Itoa(m.opts.VolumeMax))
	}
	if m.opts.Volume > 0 {
		args = append(args, "--volume="+strconv.Itoa(m.opts.Volume))
	}
	if m.surface != nil {
		args = append(args, "--wid="+strconv.FormatUint(m.surface.Handle(), 10))
	}
	return args
}

func (m *MPV) Start() error {
	if m.proc != nil && m.proc.running() {
		return nil
	}

	addr, cleanup, err := ipcAddress()
	if err != nil {
		return err
	}

	proc, err := startProcess("mpv", m.opts.binary("mpv"), m.args(addr))
	if err != nil {
		cleanup()
		return err
	}

	conn, err := proc.dial(func() (io.ReadWriteCloser, error) { return dialIPC(addr) })
	if err != nil {
		proc.cmd.Process.Kill()
		cleanup()
		return fmt.Errorf("mpv ipc: %w", err)
	}

	m.proc = proc
	m.cleanup = cleanup
	m.events = make(chan ipcMessage, 16)
	m.ipc = newIPCClient(conn, m.opts.timeout(), m.handleEvent)
	return nil
}

func (m *MPV) handleEvent(ev ipcMessage) {
	switch ev.Event {
	case "file-loaded", "end-file":
	default:
		return
	}
	logging.WithComponent("mpv").WithField("event", ev.Event).WithField("reason", ev.Reason).Debug("mpv event")

	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()
	select {
	case m.events <- ev:
	default:
		// Drop the oldest so the latest lifecycle event is always kept.
		select {
		case <-m.events:
		default:
		}
		select {
		case m.events <- ev:
		default:
		}
	}
}

func (m *MPV) drainEvents() {
	m.eventsMu.Lock()
	defer m.eventsMu.Unlock()
	for {
		select {
		case <-m.events:
		default:
			return
		}
	}
}

func (m *MPV) Close() error {
	if m.proc == nil {
		return nil
	}
	if m.ipc != nil {
		m.ipc.command("quit")
		m.ipc.Close()
	}
	m.proc.wait(2 * time.Second)
	if m.cleanup != nil {
		m.cleanup()
	}
	m.proc, m.ipc = nil, nil
	return nil
}

func (m *MPV) client() (*ipcClient, error) {
	if m.ipc == nil {
		return nil, ErrNotRunning
	}
	return m.ipc, nil
}

func (m *MPV) Load(path string) (media.Info, error) {
	c, err := m.client()
	if err != nil {
		return media.Info{}, err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return media.Info{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if fi.IsDir() {
		return media.Info{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	if err := c.set("pause", true); err != nil {
		return media.Info{}, err
	}
	if err := m.loadFile(c, path); err != nil {
		return media.Info{}, err
	}
	m.loaded = path
	m.stopped = false

	info := media.Info{Path: path}
	if secs, err := c.getFloat("duration"); err == nil {
		info.Duration = secondsToDuration(secs)
	}
	if title, err := c.getString("media-title"); err == nil {
		info.Title = title
	}
	return info, nil
}

// loadFile replaces the current file and waits for mpv to confirm it.
func (m *MPV) loadFile(c *ipcClient, path string) error {
	m.drainEvents()
	if _, err := c.command("loadfile", path, "replace"); err != nil {
		return err
	}

	deadline := time.NewTimer(2 * m.opts.timeout())
	defer deadline.Stop()
	for {
		select {
		case ev := <-m.events:
			switch {
			case ev.Event == "file-loaded":
				return nil
			case ev.Event == "end-file" && ev.Reason == "error":
				return fmt.Errorf("%w: %s", ErrUnsupportedMedia, ev.FileError)
			}
		case <-deadline.C:
			return fmt.Errorf("loading %s: %w", path, ErrTimeout)
		}
	}
}

func (m *MPV) Play() error {
	c, err := m.client()
	if err != nil {
		return err
	}
	if m.loaded == "" {
		return ErrNoMedia
	}
	// stop unloads the file in mpv; bring it back before resuming.
	if m.stopped {
		if err := m.loadFile(c, m.loaded); err != nil {
			return err
		}
		m.stopped = false
	}
	return c.set("pause", false)
}

func (m *MPV) Pause() error {
	c, err := m.client()
	if err != nil {
		return err
	}
	return c.set("pause", true)
}

func (m *MPV) Stop() error {
	c, err := m.client()
	if err != nil {
		return err
	}
	if _, err := c.command("stop"); err != nil {
		return err
	}
	m.stopped = true
	return nil
}

func (m *MPV) Time() (time.Duration, error) {
	c, err := m.client()
	if err != nil {
		return 0, err
	}
	secs, err := c.getFloat("time-pos")
	if err != nil {
		return 0, err
	}
	return secondsToDuration(secs), nil
}

func (m *MPV) SetTime(t time.Duration) error {
	c, err := m.client()
	if err != nil {
		return err
	}
	return c.set("time-pos", t.Seconds())
}

func (m *MPV) Position() (float64, error) {
	c, err := m.client()
	if err != nil {
		return 0, err
	}
	pct, err := c.getFloat("percent-pos")
	if err != nil {
		return 0, err
	}
	return pct / 100, nil
}

func (m *MPV) SetPosition(pos float64) error {
	c, err := m.client()
	if err != nil {
		return err
	}
	return c.set("percent-pos", pos*100)
}

func (m *MPV) Volume() (int, error) {
	c, err := m.client()
	if err != nil {
		return 0, err
	}
	v, err := c.getFloat("volume")
	if err != nil {
		return 0, err
	}
	return int(math.Round(v)), nil
}

func (m *MPV) SetVolume(v int) error {
	c, err := m.client()
	if err != nil {
		return err
	}
	return c.set("volume", v)
}

func (m *MPV) IsPlaying() bool {
	c, err := m.client()
	if err != nil {
		return false
	}
	idle, err := c.getBool("idle-active")
	if err != nil || idle {
		return false
	}
	paused, err := c.getBool("pause")
	if err != nil {
		return false
	}
	return !paused
}

func (m *MPV) Properties() (media.Properties, error) {
	c, err := m.client()
	if err != nil {
		return media.Properties{}, err
	}
	if m.loaded == "" || m.stopped {
		return media.Properties{}, ErrNoMedia
	}

	props := media.Properties{Rate: 1, Track: -1}
	if w, err := c.getFloat("width"); err == nil {
		props.Width = int(w)
	}
	if h, err := c.getFloat("height"); err == nil {
		props.Height = int(h)
	}
	if fps, err := c.getFloat("container-fps"); err == nil {
		props.FPS = fps
	}
	if rate, err := c.getFloat("speed"); err == nil {
		props.Rate = rate
	}
	if aspect, err := c.getFloat("video-params/aspect"); err == nil {
		props.AspectRatio = strconv.FormatFloat(aspect, 'f', 2, 64)
	}
	if scale, err := c.getFloat("current-window-scale"); err == nil {
		props.Scale = scale
	}
	// vid is a track number, or false when video is disabled.
	var vid json.RawMessage
	if err := c.get("vid", &vid); err == nil {
		if n, err := strconv.Atoi(string(vid)); err == nil {
			props.Track = n
		}
	}
	var tracks []struct {
		Type string `json:"type"`
	}
	if err := c.get("track-list", &tracks); err == nil {
		for _, t := range tracks {
			if t.Type == "video" {
				props.TrackCount++
			}
		}
	}
	return props, nil
}

func (m *MPV) AddSubtitle(path string) error {
	c, err := m.client()
	if err != nil {
		return err
	}
	_, err = c.command("sub-add", path, "select")
	return err
}

func secondsToDuration(secs float64) time.Duration {
	if secs < 0 || math.IsNaN(secs) {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
