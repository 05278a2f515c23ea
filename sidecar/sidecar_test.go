package sidecar_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caberfan/lyricsdl/sidecar"
)

func TestPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/music/a/01 Song.lrc", sidecar.Path("/music/a/01 Song.flac"))
	assert.Equal(t, "/music/a/Song.lrc", sidecar.Path("/music/a/Song.MP3"))
	assert.Equal(t, "/music/a.b/Song.x.lrc", sidecar.Path("/music/a.b/Song.x.mp3"))
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audio := filepath.Join(dir, "Coldplay - Yellow.mp3")

	got, err := sidecar.Read(audio)
	require.NoError(t, err)
	assert.Empty(t, got)

	const lyrics = "[00:01.00] Look at the stars\n[00:05.00] Look how they shine for you\n"
	path, err := sidecar.Write(audio, lyrics)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Coldplay - Yellow.lrc"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, lyrics, string(data))

	_, err = sidecar.Write(audio, "replaced")
	require.NoError(t, err)
	got, err = sidecar.Read(audio)
	require.NoError(t, err)
	assert.Equal(t, "replaced", got)
}

func TestWriteUnicode(t *testing.T) {
	t.Parallel()

	audio := filepath.Join(t.TempDir(), "Sigur Rós - Hoppípolla.flac")
	const lyrics = "[00:10.00] Brosandi\n[00:12.00] Hendumst í hringi\n"
	path, err := sidecar.Write(audio, lyrics)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte(lyrics), data)
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	audio := filepath.Join(t.TempDir(), "missing-dir", "song.mp3")
	_, err := sidecar.Write(audio, "lyrics")

	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, sidecar.Path(audio), pathErr.Path)
}
