// Package sidecar stores lyrics in .lrc files next to the audio they belong to.
package sidecar

import (
	"errors"
	"io/fs"
	"os"

	"github.com/caberfan/lyricsdl/fileutil"
)

const Ext = ".lrc"

// Path is the audio path with its final extension replaced by .lrc.
func Path(audioPath string) string {
	return fileutil.ReplaceExt(audioPath, Ext)
}

// Write saves lyrics byte for byte to the sidecar of audioPath, replacing any existing one.
func Write(audioPath string, lyrics string) (string, error) {
	path := Path(audioPath)
	if err := fileutil.WriteFileAtomic(path, []byte(lyrics), 0o644); err != nil {
		return "", &fs.PathError{Op: "write sidecar", Path: path, Err: err}
	}
	return path, nil
}

// Read returns the existing sidecar for audioPath, or "" if there is none.
func Read(audioPath string) (string, error) {
	data, err := os.ReadFile(Path(audioPath))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
