package tags

import (
	"path/filepath"
	"strings"
)

// Format is the closed set of audio file families lyrics can be written to.
type Format uint8

const (
	FormatUnknown Format = iota
	MP3
	FLAC
)

// FormatOf classifies path by its extension, ignoring case.
func FormatOf(path string) Format {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return MP3
	case ".flac":
		return FLAC
	}
	return FormatUnknown
}

// TagKind is the container Open uses for the format.
func (f Format) TagKind() Kind {
	switch f {
	case MP3:
		return KindID3v2
	case FLAC:
		return KindVorbis
	}
	return KindNone
}

func (f Format) String() string {
	switch f {
	case MP3:
		return "mp3"
	case FLAC:
		return "flac"
	}
	return "unknown"
}

// Kind is the type of tag container a format stores its metadata in.
type Kind uint8

const (
	KindNone Kind = iota
	KindID3v2
	KindVorbis
)

func (k Kind) String() string {
	switch k {
	case KindID3v2:
		return "id3v2"
	case KindVorbis:
		return "vorbis"
	}
	return "none"
}
