package engine

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"hydra/internal/media"
)

// vlcFullVolume is the RC interface's volume value for 100%.
const vlcFullVolume = 256

// rcSeconds rounds d to the nearest whole second. The RC interface reports
// and seeks in whole seconds (get_length, get_time, seek), so durations and
// seek targets with VLC have one second resolution.
func rcSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Round(time.Second) / time.Second)
}

// VLC implements the Engine interface for VLC media player through its
// remote-control (rc) text interface on a loopback TCP port. The rc
// interface exposes no stream properties, so Properties reports only the
// duration-independent defaults.
type VLC struct {
	opts    Options
	surface Surface

	proc   *process
	conn   io.ReadWriteCloser
	reader *bufio.Reader

	loaded   string
	length   time.Duration
	paused   bool
	deadline func(time.Time) error
}

// NewVLC creates a VLC engine. Call Start before use.
func NewVLC(opts Options) *VLC {
	return &VLC{opts: opts}
}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool {
	_, err := exec.LookPath(v.opts.binary("vlc"))
	return err == nil
}

func (v *VLC) Attach(s Surface) error {
	if v.proc != nil {
		return fmt.Errorf("vlc: surface must be attached before start")
	}
	v.surface = s
	return nil
}

func (v *VLC) args(addr string) []string {
	args := []string{
		"-I", "rc",
		"--rc-host=" + addr,
		"--no-playlist-autostart",
		"--no-video-title-show",
		"--play-and-stop",
	}
	if v.surface != nil {
		handle := strconv.FormatUint(v.surface.Handle(), 10)
		switch v.surface.Kind() {
		case SurfaceX11:
			args = append(args, "--drawable-xid="+handle)
		case SurfaceHWND:
			args = append(args, "--drawable-hwnd="+handle)
		case SurfaceNSView:
			args = append(args, "--drawable-nsobject="+handle)
		}
	}
	return args
}

// freeLoopbackAddr asks the kernel for an unused local port.
func freeLoopbackAddr() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("reserving rc port: %w", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr, nil
}

func (v *VLC) Start() error {
	if v.proc != nil && v.proc.running() {
		return nil
	}

	addr, err := freeLoopbackAddr()
	if err != nil {
		return err
	}

	proc, err := startProcess("vlc", v.opts.binary("vlc"), v.args(addr))
	if err != nil {
		return err
	}

	conn, err := proc.dial(func() (io.ReadWriteCloser, error) { return net.Dial("tcp", addr) })
	if err != nil {
		proc.cmd.Process.Kill()
		return fmt.Errorf("vlc rc: %w", err)
	}

	v.proc = proc
	v.attachConn(conn)
	if v.opts.Volume > 0 {
		v.SetVolume(v.opts.Volume)
	}
	return nil
}

func (v *VLC) attachConn(conn io.ReadWriteCloser) {
	v.conn = conn
	v.reader = bufio.NewReader(conn)
	if nc, ok := conn.(net.Conn); ok {
		v.deadline = nc.SetReadDeadline
	}
}

func (v *VLC) Close() error {
	if v.proc == nil {
		return nil
	}
	if v.conn != nil {
		v.send("quit")
		v.conn.Close()
	}
	v.proc.wait(2 * time.Second)
	v.proc, v.conn = nil, nil
	return nil
}

// send writes one rc command. Commands that print nothing are sent this way.
func (v *VLC) send(cmd string) error {
	if v.conn == nil {
		return ErrNotRunning
	}
	if _, err := io.WriteString(v.conn, cmd+"\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	return nil
}

// query sends a command and returns the first value line of the reply,
// skipping prompts and status chatter left over from earlier commands.
func (v *VLC) query(cmd string) (string, error) {
	if err := v.send(cmd); err != nil {
		return "", err
	}
	if v.deadline != nil {
		v.deadline(time.Now().Add(v.opts.timeout()))
		defer v.deadline(time.Time{})
	}
	for {
		line, err := v.reader.ReadString('\n')
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return "", fmt.Errorf("vlc %s: %w", cmd, ErrTimeout)
			}
			return "", fmt.Errorf("%w: %v", ErrNotRunning, err)
		}
		if value, ok := rcValue(line); ok {
			return value, nil
		}
	}
}

// rcValue strips prompts from an rc output line and reports whether what
// remains is a command's value rather than noise.
func rcValue(line string) (string, bool) {
	line = strings.TrimSpace(line)
	for strings.HasPrefix(line, ">") {
		line = strings.TrimSpace(strings.TrimPrefix(line, ">"))
	}
	switch {
	case line == "":
		return "", false
	case strings.HasPrefix(line, "status change:"):
		return "", false
	case strings.Contains(line, ": returned "):
		return "", false
	case strings.HasPrefix(line, "VLC media player"), strings.HasPrefix(line, "Command Line Interface"):
		return "", false
	}
	return line, true
}

func (v *VLC) queryInt(cmd string) (int, error) {
	s, err := v.query(cmd)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("vlc %s: unexpected reply %q", cmd, s)
	}
	return n, nil
}

func (v *VLC) Load(path string) (media.Info, error) {
	if v.conn == nil {
		return media.Info{}, ErrNotRunning
	}

	fi, err := os.Stat(path)
	if err != nil {
		return media.Info{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if fi.IsDir() {
		return media.Info{}, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	v.send("clear")
	if err := v.send("add " + path); err != nil {
		return media.Info{}, err
	}

	// rc reports a zero length until the input has been opened.
	var length int
	deadline := time.Now().Add(2 * v.opts.timeout())
	for {
		length, err = v.queryInt("get_length")
		if err == nil && length > 0 {
			break
		}
		if time.Now().After(deadline) {
			v.send("stop")
			return media.Info{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, path)
		}
		time.Sleep(50 * time.Millisecond)
	}
	v.send("pause")
	v.paused = true
	v.loaded = path
	v.length = time.Duration(length) * time.Second

	info := media.Info{Path: path, Duration: v.length}
	if title, err := v.query("get_title"); err == nil {
		info.Title = title
	}
	return info, nil
}

func (v *VLC) Play() error {
	if v.loaded == "" {
		return ErrNoMedia
	}
	if v.paused {
		v.paused = false
		return v.send("pause")
	}
	return v.send("play")
}

func (v *VLC) Pause() error {
	if v.paused || !v.IsPlaying() {
		return nil
	}
	v.paused = true
	return v.send("pause")
}

func (v *VLC) Stop() error {
	v.paused = false
	return v.send("stop")
}

func (v *VLC) Time() (time.Duration, error) {
	secs, err := v.queryInt("get_time")
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

func (v *VLC) SetTime(t time.Duration) error {
	return v.send("seek " + strconv.Itoa(rcSeconds(t)))
}

func (v *VLC) Position() (float64, error) {
	if v.length <= 0 {
		return 0, ErrNoMedia
	}
	t, err := v.Time()
	if err != nil {
		return 0, err
	}
	return float64(t) / float64(v.length), nil
}

func (v *VLC) SetPosition(pos float64) error {
	if v.length <= 0 {
		return ErrNoMedia
	}
	return v.SetTime(time.Duration(pos * float64(v.length)))
}

func (v *VLC) Volume() (int, error) {
	raw, err := v.queryInt("volume")
	if err != nil {
		return 0, err
	}
	return raw * 100 / vlcFullVolume, nil
}

func (v *VLC) SetVolume(vol int) error {
	return v.send("volume " + strconv.Itoa(vol*vlcFullVolume/100))
}

func (v *VLC) IsPlaying() bool {
	if v.paused {
		return false
	}
	n, err := v.queryInt("is_playing")
	return err == nil && n == 1
}

func (v *VLC) Properties() (media.Properties, error) {
	if v.loaded == "" {
		return media.Properties{}, ErrNoMedia
	}
	return media.Properties{Rate: 1, Track: -1}, nil
}

func (v *VLC) AddSubtitle(path string) error {
	return ErrUnsupported
}
