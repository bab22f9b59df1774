// Package subtitle finds sidecar subtitle files next to local media and
// picks the one matching the preferred language.
package subtitle

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"hydra/internal/media"
)

var extensions = []string{".srt", ".ass", ".ssa", ".vtt", ".sub"}

// languages maps common ISO 639 codes to the names used in config.
var languages = map[string]string{
	"en": "english", "eng": "english",
	"es": "spanish", "spa": "spanish",
	"fr": "french", "fre": "french", "fra": "french",
	"de": "german", "ger": "german", "deu": "german",
	"it": "italian", "ita": "italian",
	"pt": "portuguese", "por": "portuguese",
	"nl": "dutch", "dut": "dutch", "nld": "dutch",
	"ru": "russian", "rus": "russian",
	"ja": "japanese", "jpn": "japanese",
	"ko": "korean", "kor": "korean",
	"zh": "chinese", "chi": "chinese", "zho": "chinese",
	"ar": "arabic", "ara": "arabic",
}

// normalize lower-cases a language tag and expands known codes.
func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if name, ok := languages[lang]; ok {
		return name
	}
	return lang
}

// Filter returns subtitles matching the preferred language (case-insensitive).
func Filter(subtitles []media.Subtitle, language string) []media.Subtitle {
	if language == "" {
		return subtitles
	}
	lang := normalize(language)
	return lo.Filter(subtitles, func(sub media.Subtitle, _ int) bool {
		return strings.Contains(normalize(sub.Language), lang) ||
			strings.Contains(strings.ToLower(sub.Label), lang)
	})
}

// BestMatch returns the best matching subtitle for the given language.
// Prefers entries without an SDH or forced tag, then any match.
func BestMatch(subtitles []media.Subtitle, language string) *media.Subtitle {
	filtered := Filter(subtitles, language)
	if len(filtered) == 0 {
		return nil
	}

	for _, sub := range filtered {
		label := strings.ToLower(sub.Label)
		if !strings.Contains(label, "sdh") && !strings.Contains(label, "forced") {
			return &sub
		}
	}
	return &filtered[0]
}

// Finder looks for subtitles stored next to media files, named after the
// media file with an optional language tag: movie.srt, movie.en.srt,
// movie.english.forced.ass.
type Finder struct {
	fs       afero.Afero
	language string
}

// NewFinder returns a Finder over fs preferring language.
func NewFinder(fs afero.Fs, language string) *Finder {
	return &Finder{fs: afero.Afero{Fs: fs}, language: language}
}

// Sidecars lists the subtitle files that belong to mediaPath.
func (f *Finder) Sidecars(mediaPath string) ([]media.Subtitle, error) {
	dir := filepath.Dir(mediaPath)
	stem := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))

	infos, err := f.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var subs []media.Subtitle
	for _, fi := range infos {
		name := fi.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if fi.IsDir() || !lo.Contains(extensions, ext) {
			continue
		}
		rest := strings.TrimSuffix(name, filepath.Ext(name))
		if rest != stem && !strings.HasPrefix(rest, stem+".") {
			continue
		}
		var lang string
		if tags := strings.Split(strings.TrimPrefix(rest, stem), "."); len(tags) > 1 {
			lang = tags[1]
		}
		subs = append(subs, media.Subtitle{
			Language: normalize(lang),
			Label:    name,
			Path:     filepath.Join(dir, name),
		})
	}
	return subs, nil
}

// Find returns the path of the best sidecar subtitle for mediaPath, or an
// empty string when there is none. An untagged subtitle is used when no
// file matches the preferred language.
func (f *Finder) Find(mediaPath string) (string, error) {
	subs, err := f.Sidecars(mediaPath)
	if err != nil || len(subs) == 0 {
		return "", err
	}
	if best := BestMatch(subs, f.language); best != nil {
		return best.Path, nil
	}
	if plain, ok := lo.Find(subs, func(s media.Subtitle) bool { return s.Language == "" }); ok {
		return plain.Path, nil
	}
	return "", nil
}
