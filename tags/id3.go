package tags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bogem/id3v2/v2"
)

type id3File struct {
	tag    *id3v2.Tag
	hasTag bool
}

func openID3(path string) (*id3File, error) {
	hasTag, err := hasID3Header(path)
	if err != nil {
		return nil, err
	}
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	return &id3File{tag: tag, hasTag: hasTag}, nil
}

func hasID3Header(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 3)
	switch _, err := io.ReadFull(f, head); {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return false, nil
	case err != nil:
		return false, err
	}
	return bytes.Equal(head, []byte("ID3")), nil
}

const usltID = "Unsynchronised lyrics/text transcription"

func (f *id3File) Kind() Kind   { return KindID3v2 }
func (f *id3File) HasTag() bool { return f.hasTag }

func (f *id3File) ReadField(key string) string {
	switch key {
	case Title:
		return f.tag.Title()
	case Artist:
		return f.tag.Artist()
	case Album:
		return f.tag.Album()
	case Lyrics:
		for _, fr := range f.tag.GetFrames(f.tag.CommonID(usltID)) {
			if uslt, ok := fr.(id3v2.UnsynchronisedLyricsFrame); ok {
				return uslt.Lyrics
			}
		}
	}
	return ""
}

func (f *id3File) EnsureTag() (bool, error) {
	if f.hasTag {
		return false, nil
	}
	f.tag.DeleteAllFrames()
	f.tag.SetVersion(4)
	f.tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	f.hasTag = true
	return true, nil
}

func (f *id3File) SetField(key, value string) error {
	if !f.hasTag {
		return ErrNoTag
	}
	switch key {
	case Title:
		f.tag.SetTitle(value)
	case Artist:
		f.tag.SetArtist(value)
	case Album:
		f.tag.SetAlbum(value)
	case Lyrics:
		// utf-8 text frames are only valid from v2.4
		enc := id3v2.EncodingUTF8
		if f.tag.Version() < 4 {
			enc = id3v2.EncodingUTF16
		}
		f.tag.DeleteFrames(f.tag.CommonID(usltID))
		f.tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding:          enc,
			Language:          "eng",
			ContentDescriptor: "",
			Lyrics:            value,
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return nil
}

// Save rewrites the file through a temporary file which replaces the original on success.
func (f *id3File) Save() error {
	return f.tag.Save()
}

func (f *id3File) Close() error {
	return f.tag.Close()
}
