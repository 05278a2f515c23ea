package tags

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

type KeySource uint8

const (
	SourceTags KeySource = iota
	SourceFilename
)

func (s KeySource) String() string {
	switch s {
	case SourceTags:
		return "tags"
	case SourceFilename:
		return "filename"
	}
	return ""
}

// TrackKey identifies a track for a lyrics lookup. An empty field is absent.
type TrackKey struct {
	Title  string
	Artist string
	Album  string
	Source KeySource
}

// Complete reports whether there is enough to search for lyrics.
func (k TrackKey) Complete() bool {
	return k.Title != "" && k.Artist != ""
}

// ReadKey reads title, artist, and album from the file's tags. If the file can't be opened or
// has no tag container that can be parsed, the key is guessed from the filename instead. A
// container that parses but lacks fields does not fall back.
func ReadKey(path string) TrackKey {
	key, err := readTagKey(path)
	if err != nil {
		slog.Debug("reading tags, using filename", "path", path, "err", err)
		return KeyFromFilename(path)
	}
	return key
}

func readTagKey(path string) (TrackKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return TrackKey{}, err
	}
	defer f.Close()

	md, err := tag.ReadFrom(f)
	if err != nil {
		return TrackKey{}, err
	}
	return TrackKey{
		Title:  md.Title(),
		Artist: md.Artist(),
		Album:  md.Album(),
		Source: SourceTags,
	}, nil
}

// KeyFromFilename parses the "Artist - Title" convention from the file stem. Without the
// separator, the whole stem is the title.
func KeyFromFilename(path string) TrackKey {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if artist, title, ok := strings.Cut(stem, " - "); ok {
		return TrackKey{
			Title:  strings.TrimSpace(title),
			Artist: strings.TrimSpace(artist),
			Source: SourceFilename,
		}
	}
	return TrackKey{Title: stem, Source: SourceFilename}
}
