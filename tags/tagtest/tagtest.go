// Package tagtest builds small but well formed audio files for tests.
package tagtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// 128kbps 44.1kHz MPEG-1 layer III frame
var mp3FrameHeader = []byte{0xFF, 0xFB, 0x90, 0x64}

const mp3FrameLen = 417

// MP3 returns a tagless MPEG audio stream of a few silent frames.
func MP3() []byte {
	var buf bytes.Buffer
	for range 4 {
		frame := make([]byte, mp3FrameLen)
		copy(frame, mp3FrameHeader)
		buf.Write(frame)
	}
	return buf.Bytes()
}

// MP3WithID3 returns MP3 audio prefixed with a v2.4 tag holding the title and artist.
// Empty values are left out of the tag.
func MP3WithID3(title, artist string) []byte {
	return append(ID3(title, artist), MP3()...)
}

// ID3 returns a bare v2.4 tag holding the title and artist, to put in front of any audio.
func ID3(title, artist string) []byte {
	tag := id3v2.NewEmptyTag()
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if title != "" {
		tag.SetTitle(title)
	}
	if artist != "" {
		tag.SetArtist(artist)
	}

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		panic(fmt.Errorf("write id3: %w", err))
	}
	return buf.Bytes()
}

// FLAC returns a stream with a lone STREAMINFO block and a short frame payload.
func FLAC() []byte {
	return flacFile(nil).Marshal()
}

// FLACWithComments returns FLAC audio with a VORBIS_COMMENT block of the key value pairs.
func FLACWithComments(kvs ...string) []byte {
	if len(kvs)%2 != 0 {
		panic("odd number of key values")
	}
	cmts := flacvorbis.New()
	for i := 0; i < len(kvs); i += 2 {
		if err := cmts.Add(kvs[i], kvs[i+1]); err != nil {
			panic(fmt.Errorf("add comment: %w", err))
		}
	}
	block := cmts.Marshal()
	return flacFile(&block).Marshal()
}

// FLACFrames is the audio payload of every file from FLAC and FLACWithComments.
func FLACFrames() []byte {
	frames := []byte{0xFF, 0xF8, 0x69, 0x08, 0x00, 0x00}
	return append(frames, bytes.Repeat([]byte{0xA5}, 64)...)
}

func flacFile(comments *flac.MetaDataBlock) *flac.File {
	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:], 4096) // min block size
	binary.BigEndian.PutUint16(info[2:], 4096) // max block size
	// sample rate, channels-1, bits per sample-1, then 36 bits of sample count
	binary.BigEndian.PutUint64(info[10:], uint64(44100)<<44|uint64(1)<<41|uint64(15)<<36)

	file := &flac.File{
		Meta:   []*flac.MetaDataBlock{{Type: flac.StreamInfo, Data: info}},
		Frames: FLACFrames(),
	}
	if comments != nil {
		file.Meta = append(file.Meta, comments)
	}
	return file
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("make parents: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
