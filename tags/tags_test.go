package tags_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caberfan/lyricsdl/tags"
	"github.com/caberfan/lyricsdl/tags/tagtest"
)

func TestFormatOf(t *testing.T) {
	t.Parallel()

	for path, exp := range map[string]tags.Format{
		"a/b.mp3":          tags.MP3,
		"a/b.MP3":          tags.MP3,
		"a/b.Flac":         tags.FLAC,
		"a/b.flac":         tags.FLAC,
		"a/b.ogg":          tags.FormatUnknown,
		"a/b.mp3.txt":      tags.FormatUnknown,
		"a/mp3":            tags.FormatUnknown,
		"a.flac/cover.jpg": tags.FormatUnknown,
	} {
		assert.Equal(t, exp, tags.FormatOf(path), path)
	}

	assert.Equal(t, tags.KindID3v2, tags.MP3.TagKind())
	assert.Equal(t, tags.KindVorbis, tags.FLAC.TagKind())
}

func TestKeyFromFilename(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		path string
		exp  tags.TrackKey
	}{
		{"/m/Coldplay - Yellow.mp3", tags.TrackKey{Title: "Yellow", Artist: "Coldplay", Source: tags.SourceFilename}},
		{"/m/  A  -  B  .flac", tags.TrackKey{Title: "B", Artist: "A", Source: tags.SourceFilename}},
		{"/m/A - B - Live.mp3", tags.TrackKey{Title: "B - Live", Artist: "A", Source: tags.SourceFilename}},
		{"/m/Intro.mp3", tags.TrackKey{Title: "Intro", Source: tags.SourceFilename}},
		{"/m/A-B.mp3", tags.TrackKey{Title: "A-B", Source: tags.SourceFilename}},
	} {
		got := tags.KeyFromFilename(tc.path)
		assert.Equal(t, tc.exp, got, tc.path)
	}
	assert.False(t, tags.KeyFromFilename("/m/Intro.mp3").Complete())
	assert.True(t, tags.KeyFromFilename("/m/A - B.mp3").Complete())
}

func TestReadKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, tc := range []struct {
		name string
		data []byte
		exp  tags.TrackKey
	}{
		{
			"Wrong - Name.flac",
			tagtest.FLACWithComments("TITLE", "Yellow", "ARTIST", "Coldplay", "ALBUM", "Parachutes"),
			tags.TrackKey{Title: "Yellow", Artist: "Coldplay", Album: "Parachutes", Source: tags.SourceTags},
		},
		{
			"Wrong - Name.mp3",
			tagtest.MP3WithID3("Yellow", "Coldplay"),
			tags.TrackKey{Title: "Yellow", Artist: "Coldplay", Source: tags.SourceTags},
		},
		{
			// parses fine, so no filename fallback
			"Coldplay - Yellow.flac",
			tagtest.FLAC(),
			tags.TrackKey{Source: tags.SourceTags},
		},
		{
			"Coldplay - Yellow.mp3",
			tagtest.MP3(),
			tags.TrackKey{Title: "Yellow", Artist: "Coldplay", Source: tags.SourceFilename},
		},
		{
			"Coldplay - Short.mp3",
			[]byte("tiny"),
			tags.TrackKey{Title: "Short", Artist: "Coldplay", Source: tags.SourceFilename},
		},
	} {
		path := filepath.Join(dir, tc.name)
		require.NoError(t, tagtest.WriteFile(path, tc.data))
		assert.Equal(t, tc.exp, tags.ReadKey(path), tc.name)
	}

	assert.Equal(t,
		tags.TrackKey{Title: "Title", Artist: "Missing", Source: tags.SourceFilename},
		tags.ReadKey(filepath.Join(dir, "Missing - Title.mp3")),
	)
}

var testFiles = []struct {
	name   string
	data   []byte
	ext    string
	format tags.Format
	audio  []byte
}{
	{"flac", tagtest.FLAC(), ".flac", tags.FLAC, tagtest.FLACFrames()},
	{"flac with id3", append(tagtest.ID3("Yellow", "Coldplay"), tagtest.FLAC()...), ".flac", tags.FLAC, tagtest.FLACFrames()},
	{"mp3", tagtest.MP3(), ".mp3", tags.MP3, tagtest.MP3()},
}

func TestEmbedCreatesTag(t *testing.T) {
	t.Parallel()

	for _, tf := range testFiles {
		t.Run(tf.name, func(t *testing.T) {
			t.Parallel()

			path := newFile(t, tf.data, tf.ext)
			withc(t, path, tf.format, func(c tags.Container) {
				assert.False(t, c.HasTag())
				assert.Equal(t, tf.format.TagKind(), c.Kind())
			})

			res, err := tags.Embed(path, tf.format, "[00:01.00] la la", false)
			require.NoError(t, err)
			assert.True(t, res.CreatedTag)
			assert.Empty(t, res.Previous)

			withc(t, path, tf.format, func(c tags.Container) {
				assert.True(t, c.HasTag())
				assert.Equal(t, "[00:01.00] la la", c.ReadField(tags.Lyrics))
			})

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.HasSuffix(data, tf.audio), "audio payload changed")
		})
	}
}

func TestEmbedReplaces(t *testing.T) {
	t.Parallel()

	for _, tf := range testFiles {
		t.Run(tf.name, func(t *testing.T) {
			t.Parallel()

			path := newFile(t, tf.data, tf.ext)
			_, err := tags.Embed(path, tf.format, "first", false)
			require.NoError(t, err)

			res, err := tags.Embed(path, tf.format, "second\nline", false)
			require.NoError(t, err)
			assert.False(t, res.CreatedTag)
			assert.Equal(t, "first", res.Previous)

			got, err := tags.ReadLyrics(path, tf.format)
			require.NoError(t, err)
			assert.Equal(t, "second\nline", got)
		})
	}
}

func TestEmbedKeepsFields(t *testing.T) {
	t.Parallel()

	flacPath := newFile(t, tagtest.FLACWithComments("TITLE", "Yellow", "ARTIST", "Coldplay", "lyrics", "old"), ".flac")
	mp3Path := newFile(t, tagtest.MP3WithID3("Yellow", "Coldplay"), ".mp3")

	for path, format := range map[string]tags.Format{flacPath: tags.FLAC, mp3Path: tags.MP3} {
		_, err := tags.Embed(path, format, "new", false)
		require.NoError(t, err)

		withc(t, path, format, func(c tags.Container) {
			assert.Equal(t, "Yellow", c.ReadField(tags.Title))
			assert.Equal(t, "Coldplay", c.ReadField(tags.Artist))
			assert.Equal(t, "new", c.ReadField(tags.Lyrics))
		})
		assert.Equal(t, tags.SourceTags, tags.ReadKey(path).Source)
	}
}

func TestEmbedFLACKeepsID3Prefix(t *testing.T) {
	t.Parallel()

	id3 := tagtest.ID3("Yellow", "Coldplay")
	path := newFile(t, append(id3, tagtest.FLACWithComments("TITLE", "Yellow")...), ".flac")

	_, err := tags.Embed(path, tags.FLAC, "[00:01.00] Look at the stars", false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, id3), "id3 prefix changed")
	assert.True(t, bytes.HasPrefix(data[len(id3):], []byte("fLaC")))
	assert.True(t, bytes.HasSuffix(data, tagtest.FLACFrames()), "audio payload changed")

	got, err := tags.ReadLyrics(path, tags.FLAC)
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00] Look at the stars", got)

	withc(t, path, tags.FLAC, func(c tags.Container) {
		assert.Equal(t, "Yellow", c.ReadField(tags.Title))
	})
	assert.Equal(t, tags.TrackKey{Title: "Yellow", Artist: "Coldplay", Source: tags.SourceTags}, tags.ReadKey(path))
}

func TestEmbedDryRun(t *testing.T) {
	t.Parallel()

	for _, tf := range testFiles {
		path := newFile(t, tf.data, tf.ext)
		res, err := tags.Embed(path, tf.format, "lyrics", true)
		require.NoError(t, err)
		assert.True(t, res.CreatedTag)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, tf.data, data)
	}
}

func TestEmbedOpenError(t *testing.T) {
	t.Parallel()

	path := newFile(t, []byte("not a flac at all"), ".flac")
	_, err := tags.Embed(path, tags.FLAC, "lyrics", false)
	require.ErrorIs(t, err, tags.ErrOpen)

	_, err = tags.Embed(filepath.Join(t.TempDir(), "missing.mp3"), tags.MP3, "lyrics", false)
	require.ErrorIs(t, err, tags.ErrOpen)

	_, err = tags.Open("a.ogg", tags.FormatUnknown)
	require.ErrorIs(t, err, tags.ErrOpen)
}

func TestSetFieldNeedsTag(t *testing.T) {
	t.Parallel()

	for _, tf := range testFiles {
		path := newFile(t, tf.data, tf.ext)
		withc(t, path, tf.format, func(c tags.Container) {
			require.ErrorIs(t, c.SetField(tags.Lyrics, "x"), tags.ErrNoTag)

			created, err := c.EnsureTag()
			require.NoError(t, err)
			assert.True(t, created)

			created, err = c.EnsureTag()
			require.NoError(t, err)
			assert.False(t, created)

			require.NoError(t, c.SetField(tags.Lyrics, "x"))
			require.ErrorIs(t, c.SetField("composer", "x"), tags.ErrUnknownField)
		})
	}
}

func TestDoubleSave(t *testing.T) {
	t.Parallel()

	path := newFile(t, tagtest.FLAC(), ".flac")
	c, err := tags.Open(path, tags.FLAC)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.EnsureTag()
	require.NoError(t, err)
	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, c.SetField(tags.Lyrics, v))
		require.NoError(t, c.Save())
	}

	got, err := tags.ReadLyrics(path, tags.FLAC)
	require.NoError(t, err)
	assert.Equal(t, "c", got)
}

func newFile(t *testing.T, data []byte, ext string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "track"+ext)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func withc(t *testing.T, path string, format tags.Format, fn func(tags.Container)) {
	t.Helper()

	c, err := tags.Open(path, format)
	require.NoError(t, err)
	defer c.Close()

	fn(c)
}
