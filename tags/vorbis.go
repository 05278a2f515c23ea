package tags

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/caberfan/lyricsdl/fileutil"
)

type vorbisFile struct {
	path string
	// id3 is an ID3v2 tag some taggers put before the fLaC marker, written back untouched
	id3   []byte
	file  *flac.File
	cmts  *flacvorbis.MetaDataBlockVorbisComment
	block int // index in file.Meta, or -1 until a comment block exists
}

func openVorbis(path string) (*vorbisFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	prefix := id3PrefixLen(data)
	r := bytes.NewReader(data[prefix:])

	file, err := flac.ParseMetadata(r)
	if err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	// frames are kept byte for byte, go-flac's own stream reader rejects short payloads
	file.Frames, err = io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}

	vf := &vorbisFile{path: path, id3: data[:prefix:prefix], file: file, block: -1}
	for i, meta := range file.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil, fmt.Errorf("parse vorbis comments: %w", err)
		}
		vf.cmts, vf.block = cmts, i
		break
	}
	return vf, nil
}

func (f *vorbisFile) Kind() Kind   { return KindVorbis }
func (f *vorbisFile) HasTag() bool { return f.cmts != nil }

func (f *vorbisFile) ReadField(key string) string {
	if f.cmts == nil {
		return ""
	}
	vs, err := f.cmts.Get(vorbisKey(key))
	if err != nil || len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func (f *vorbisFile) EnsureTag() (bool, error) {
	if f.cmts != nil {
		return false, nil
	}
	f.cmts = flacvorbis.New()

	// STREAMINFO must stay the first block
	at := min(1, len(f.file.Meta))
	block := f.cmts.Marshal()
	f.file.Meta = slices.Insert(f.file.Meta, at, &block)
	f.block = at
	return true, nil
}

func (f *vorbisFile) SetField(key, value string) error {
	if f.cmts == nil {
		return ErrNoTag
	}
	switch key {
	case Title, Artist, Album, Lyrics:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	field := vorbisKey(key)
	kept := f.cmts.Comments[:0]
	for _, c := range f.cmts.Comments {
		k, _, _ := strings.Cut(c, "=")
		if !strings.EqualFold(k, field) {
			kept = append(kept, c)
		}
	}
	f.cmts.Comments = kept
	if err := f.cmts.Add(field, value); err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

func (f *vorbisFile) Save() error {
	if f.cmts != nil {
		block := f.cmts.Marshal()
		f.file.Meta[f.block] = &block
	}
	data := append(f.id3, f.file.Marshal()...)
	return fileutil.WriteFileAtomic(f.path, data, 0o644)
}

func (f *vorbisFile) Close() error {
	return nil
}

// id3PrefixLen is the size of a leading ID3v2 tag including its footer, or 0 if there is none.
func id3PrefixLen(data []byte) int {
	const headerLen = 10
	if len(data) < headerLen || !bytes.HasPrefix(data, []byte("ID3")) {
		return 0
	}
	// syncsafe, 7 bits per byte
	var size int
	for _, b := range data[6:10] {
		size = size<<7 | int(b&0x7f)
	}
	size += headerLen
	if data[5]&0x10 != 0 {
		size += headerLen
	}
	return min(size, len(data))
}

func vorbisKey(key string) string {
	return strings.ToUpper(key)
}
