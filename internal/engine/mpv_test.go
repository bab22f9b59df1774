package engine

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeMPV answers the subset of mpv's JSON IPC that the engine uses.
type fakeMPV struct {
	mu       sync.Mutex
	props    map[string]interface{}
	commands []string
	silent   map[string]bool // commands that never get a reply
}

func (f *fakeMPV) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.commands {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeMPV) prop(name string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.props[name]
}

func (f *fakeMPV) serve(conn net.Conn) {
	defer conn.Close()
	enc := json.NewEncoder(conn)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var req struct {
			Command   []interface{} `json:"command"`
			RequestID int64         `json:"request_id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		name, _ := req.Command[0].(string)

		f.mu.Lock()
		f.commands = append(f.commands, name)
		silent := f.silent[name]
		f.mu.Unlock()
		if silent {
			continue
		}

		reply := map[string]interface{}{"request_id": req.RequestID, "error": "success"}
		var event map[string]interface{}

		f.mu.Lock()
		switch name {
		case "get_property":
			if v, ok := f.props[req.Command[1].(string)]; ok {
				reply["data"] = v
			} else {
				reply["error"] = "property unavailable"
			}
		case "set_property":
			f.props[req.Command[1].(string)] = req.Command[2]
		case "loadfile":
			path := req.Command[1].(string)
			if strings.Contains(filepath.Base(path), "broken") {
				event = map[string]interface{}{"event": "end-file", "reason": "error", "file_error": "unrecognized file format"}
			} else {
				f.props["idle-active"] = false
				event = map[string]interface{}{"event": "file-loaded"}
			}
		case "stop":
			f.props["idle-active"] = true
		}
		f.mu.Unlock()

		if err := enc.Encode(reply); err != nil {
			return
		}
		if event != nil {
			if err := enc.Encode(event); err != nil {
				return
			}
		}
	}
}

func newTestMPV(t *testing.T) (*MPV, *fakeMPV) {
	t.Helper()
	client, server := net.Pipe()
	fake := &fakeMPV{
		props: map[string]interface{}{
			"idle-active":   true,
			"pause":         false,
			"duration":      600.0,
			"media-title":   "Big Buck Bunny",
			"time-pos":      12.5,
			"percent-pos":   25.0,
			"volume":        70.0,
			"width":         1920.0,
			"height":        1080.0,
			"container-fps": 24.0,
			"speed":         1.0,
			"vid":           1,
			"track-list": []interface{}{
				map[string]interface{}{"type": "video"},
				map[string]interface{}{"type": "audio"},
				map[string]interface{}{"type": "sub"},
			},
		},
		silent: map[string]bool{},
	}
	go fake.serve(server)

	m := NewMPV(Options{Timeout: 500 * time.Millisecond})
	m.events = make(chan ipcMessage, 16)
	m.ipc = newIPCClient(client, m.opts.timeout(), m.handleEvent)
	t.Cleanup(func() { m.ipc.Close() })
	return m, fake
}

func writeMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not really media"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMPVLoad(t *testing.T) {
	m, fake := newTestMPV(t)
	path := writeMediaFile(t, "bunny.mkv")

	info, err := m.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if info.Title != "Big Buck Bunny" {
		t.Errorf("title = %q, want Big Buck Bunny", info.Title)
	}
	if info.Duration != 10*time.Minute {
		t.Errorf("duration = %v, want 10m", info.Duration)
	}
	if info.Path != path {
		t.Errorf("path = %q, want %q", info.Path, path)
	}
	if fake.prop("pause") != true {
		t.Error("Load() should leave the item paused")
	}
}

func TestMPVLoadBrokenFile(t *testing.T) {
	m, _ := newTestMPV(t)
	path := writeMediaFile(t, "broken.mkv")

	_, err := m.Load(path)
	if !errors.Is(err, ErrUnsupportedMedia) {
		t.Fatalf("Load() error = %v, want ErrUnsupportedMedia", err)
	}
}

func TestMPVLoadMissingFile(t *testing.T) {
	m, fake := newTestMPV(t)

	if _, err := m.Load(filepath.Join(t.TempDir(), "nope.mkv")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
	if n := fake.count("loadfile"); n != 0 {
		t.Errorf("loadfile sent %d times for a missing file, want 0", n)
	}
}

func TestMPVPlayAfterStopReloads(t *testing.T) {
	m, fake := newTestMPV(t)
	path := writeMediaFile(t, "clip.mp4")

	if _, err := m.Load(path); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := m.Play(); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !m.IsPlaying() {
		t.Error("IsPlaying() = false after Play()")
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if m.IsPlaying() {
		t.Error("IsPlaying() = true after Stop()")
	}

	if err := m.Play(); err != nil {
		t.Fatalf("Play() after Stop() error: %v", err)
	}
	if n := fake.count("loadfile"); n != 2 {
		t.Errorf("loadfile sent %d times, want 2 (load + restart)", n)
	}
	if !m.IsPlaying() {
		t.Error("IsPlaying() = false after restart")
	}
}

func TestMPVPlayWithoutMedia(t *testing.T) {
	m, _ := newTestMPV(t)
	if err := m.Play(); !errors.Is(err, ErrNoMedia) {
		t.Errorf("Play() error = %v, want ErrNoMedia", err)
	}
}

func TestMPVTimeAndPosition(t *testing.T) {
	m, fake := newTestMPV(t)

	got, err := m.Time()
	if err != nil {
		t.Fatalf("Time() error: %v", err)
	}
	if got != 12500*time.Millisecond {
		t.Errorf("Time() = %v, want 12.5s", got)
	}

	pos, err := m.Position()
	if err != nil {
		t.Fatalf("Position() error: %v", err)
	}
	if pos != 0.25 {
		t.Errorf("Position() = %v, want 0.25", pos)
	}

	if err := m.SetTime(90 * time.Second); err != nil {
		t.Fatalf("SetTime() error: %v", err)
	}
	if fake.prop("time-pos") != 90.0 {
		t.Errorf("time-pos = %v, want 90", fake.prop("time-pos"))
	}

	if err := m.SetPosition(0.5); err != nil {
		t.Fatalf("SetPosition() error: %v", err)
	}
	if fake.prop("percent-pos") != 50.0 {
		t.Errorf("percent-pos = %v, want 50", fake.prop("percent-pos"))
	}
}

func TestMPVVolume(t *testing.T) {
	m, _ := newTestMPV(t)

	if err := m.SetVolume(35); err != nil {
		t.Fatalf("SetVolume() error: %v", err)
	}
	v, err := m.Volume()
	if err != nil {
		t.Fatalf("Volume() error: %v", err)
	}
	if v != 35 {
		t.Errorf("Volume() = %d, want 35", v)
	}
}

func TestMPVProperties(t *testing.T) {
	m, _ := newTestMPV(t)
	if _, err := m.Properties(); !errors.Is(err, ErrNoMedia) {
		t.Errorf("Properties() without media error = %v, want ErrNoMedia", err)
	}

	if _, err := m.Load(writeMediaFile(t, "movie.mkv")); err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	props, err := m.Properties()
	if err != nil {
		t.Fatalf("Properties() error: %v", err)
	}
	if props.Resolution() != "1920 x 1080" {
		t.Errorf("resolution = %q", props.Resolution())
	}
	if props.FPS != 24 {
		t.Errorf("fps = %v, want 24", props.FPS)
	}
	if props.Track != 1 {
		t.Errorf("track = %d, want 1", props.Track)
	}
	if props.TrackCount != 1 {
		t.Errorf("track count = %d, want 1", props.TrackCount)
	}
}

func TestMPVCommandTimeout(t *testing.T) {
	m, fake := newTestMPV(t)
	fake.mu.Lock()
	fake.silent["stop"] = true
	fake.mu.Unlock()

	err := m.Stop()
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Stop() error = %v, want ErrTimeout", err)
	}
}

func TestMPVClosedConnection(t *testing.T) {
	m, _ := newTestMPV(t)
	m.ipc.Close()

	// Wait for the reader to notice.
	<-m.ipc.done

	if _, err := m.Time(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Time() error = %v, want ErrNotRunning", err)
	}
	if m.IsPlaying() {
		t.Error("IsPlaying() should be false on a dead connection")
	}
}

func TestMPVNotStarted(t *testing.T) {
	m := NewMPV(Options{})
	if _, err := m.Load("/tmp/x.mkv"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Load() error = %v, want ErrNotRunning", err)
	}
	if m.IsPlaying() {
		t.Error("IsPlaying() should be false before Start")
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() before Start error: %v", err)
	}
}

func TestMPVArgs(t *testing.T) {
	m := NewMPV(Options{Volume: 40, VolumeMax: 130})
	if err := m.Attach(NewSurface(77)); err != nil {
		t.Fatalf("Attach() error: %v", err)
	}
	args := strings.Join(m.args("/tmp/sock"), " ")

	for _, want := range []string{"--idle=yes", "--input-ipc-server=/tmp/sock", "--volume=40", "--volume-max=130", "--wid=77"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}

	plain := strings.Join(NewMPV(Options{}).args("/tmp/sock"), " ")
	if strings.Contains(plain, "--wid") {
		t.Errorf("args without a surface should not set --wid: %q", plain)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"mpv", "mpv"},
		{"MPV", "mpv"},
		{"vlc", "vlc"},
		{"", "mpv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.name, Options{}).Name(); got != tt.want {
				t.Errorf("New(%q).Name() = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
