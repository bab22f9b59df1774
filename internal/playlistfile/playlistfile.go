// Package playlistfile turns playlist files (.m3u, .m3u8, .pls) and media
// directories into ordered lists of local media paths.
package playlistfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// ErrUnsupportedFormat is returned for files that are not a known playlist type.
var ErrUnsupportedFormat = errors.New("unsupported playlist format")

// Reader resolves playlists against a filesystem. Only files whose
// extension is in the media list are returned from directories.
type Reader struct {
	fs         afero.Afero
	extensions []string
}

// New returns a Reader over fs. extensions are matched case-insensitively
// and include the leading dot.
func New(fs afero.Fs, extensions []string) *Reader {
	return &Reader{
		fs:         afero.Afero{Fs: fs},
		extensions: lo.Map(extensions, func(e string, _ int) string { return strings.ToLower(e) }),
	}
}

// NewOS returns a Reader over the real filesystem.
func NewOS(extensions []string) *Reader {
	return New(afero.NewOsFs(), extensions)
}

// IsPlaylist reports whether path has a playlist extension.
func IsPlaylist(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8", ".pls":
		return true
	}
	return false
}

// IsMedia reports whether path has one of the configured media extensions.
func (r *Reader) IsMedia(path string) bool {
	return lo.Contains(r.extensions, strings.ToLower(filepath.Ext(path)))
}

// Load reads a playlist file or lists a directory.
func (r *Reader) Load(path string) ([]string, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening playlist: %w", err)
	}
	if info.IsDir() {
		return r.Dir(path)
	}

	var parse func(io.Reader) ([]string, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8":
		parse = parseM3U
	case ".pls":
		parse = parsePLS
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening playlist: %w", err)
	}
	defer f.Close()

	entries, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	base := filepath.Dir(path)
	paths := lo.FilterMap(entries, func(entry string, _ int) (string, bool) {
		return resolve(base, entry)
	})
	return paths, nil
}

// Dir lists the media files directly inside dir, sorted by name.
func (r *Reader) Dir(dir string) ([]string, error) {
	infos, err := r.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var paths []string
	for _, fi := range infos {
		if fi.IsDir() || strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		if r.IsMedia(fi.Name()) {
			paths = append(paths, filepath.Join(dir, fi.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Expand turns command line arguments into media paths: directories are
// listed, playlist files are read, anything else is passed through.
func (r *Reader) Expand(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := r.fs.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			entries, err := r.Dir(arg)
			if err != nil {
				return nil, err
			}
			paths = append(paths, entries...)
		case err == nil && IsPlaylist(arg):
			entries, err := r.Load(arg)
			if err != nil {
				return nil, err
			}
			paths = append(paths, entries...)
		default:
			// Missing files are left for the player to report.
			paths = append(paths, arg)
		}
	}
	return paths, nil
}

// resolve makes a playlist entry absolute relative to the playlist's
// directory. Remote URLs are dropped; file:// URLs become paths.
func resolve(base, entry string) (string, bool) {
	if strings.Contains(entry, "://") {
		u, err := url.Parse(entry)
		if err != nil || u.Scheme != "file" {
			return "", false
		}
		entry = u.Path
	}
	entry = filepath.FromSlash(entry)
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(base, entry)
	}
	return filepath.Clean(entry), true
}

func parseM3U(rd io.Reader) ([]string, error) {
	var entries []string
	scanner := bufio.NewScanner(rd)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries, scanner.Err()
}

func parsePLS(rd io.Reader) ([]string, error) {
	files := make(map[int]string)
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok || !strings.HasPrefix(strings.ToLower(key), "file") {
			continue
		}
		n, err := strconv.Atoi(key[len("file"):])
		if err != nil {
			continue
		}
		files[n] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	keys := lo.Keys(files)
	sort.Ints(keys)
	return lo.Map(keys, func(k int, _ int) string { return files[k] }), nil
}
