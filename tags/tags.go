// Package tags reads track identity from audio files and writes lyrics into their tag
// containers: ID3v2 for MP3 files and Vorbis comments for FLAC files.
package tags

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

var (
	ErrOpen         = errors.New("open container")
	ErrNoTag        = errors.New("no tag in container")
	ErrSave         = errors.New("save container")
	ErrUnknownField = errors.New("unknown field")
)

const (
	Title  = "title"
	Artist = "artist"
	Album  = "album"
	Lyrics = "lyrics"
)

// Container is an opened audio file's tag container. Field writes are buffered until Save.
type Container interface {
	Kind() Kind
	HasTag() bool
	ReadField(key string) string
	// EnsureTag creates an empty tag of the container's kind if the file has none.
	EnsureTag() (created bool, err error)
	SetField(key, value string) error
	Save() error
	Close() error
}

// Open opens a fresh container for path. Containers aren't shared between calls.
func Open(path string, format Format) (Container, error) {
	var c Container
	var err error
	switch format.TagKind() {
	case KindID3v2:
		c, err = openID3(path)
	case KindVorbis:
		c, err = openVorbis(path)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrOpen, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return c, nil
}

type EmbedResult struct {
	CreatedTag bool
	Previous   string
}

// Embed writes lyrics into the file's tag, creating one of the right kind if needed. With
// dryRun the file is left untouched, but the result is still reported.
func Embed(path string, format Format, lyrics string, dryRun bool) (EmbedResult, error) {
	c, err := Open(path, format)
	if err != nil {
		return EmbedResult{}, err
	}
	defer c.Close()

	var res EmbedResult
	res.Previous = c.ReadField(Lyrics)

	res.CreatedTag, err = c.EnsureTag()
	if err != nil {
		return EmbedResult{}, fmt.Errorf("%w: %w", ErrNoTag, err)
	}
	if err := c.SetField(Lyrics, lyrics); err != nil {
		return EmbedResult{}, err
	}

	slog.Debug("tag change", "path", path, "kind", c.Kind(), "created", res.CreatedTag, "from_bytes", len(res.Previous), "to_bytes", len(lyrics))

	if dryRun {
		return res, nil
	}
	if err := c.Save(); err != nil {
		return EmbedResult{}, fmt.Errorf("%w: %w", ErrSave, err)
	}
	return res, nil
}

// ReadLyrics returns the lyrics already stored in the file, if any.
func ReadLyrics(path string, format Format) (string, error) {
	c, err := Open(path, format)
	if err != nil {
		return "", err
	}
	defer c.Close()
	return c.ReadField(Lyrics), nil
}
