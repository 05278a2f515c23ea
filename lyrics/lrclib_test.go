package lyrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caberfan/lyricsdl/lyrics"
)

type lrclibServer struct {
	mu      sync.Mutex
	queries []string
	results map[string]string
	status  int
}

func newLRCLibServer(t *testing.T, results map[string]string) (*lrclibServer, *lyrics.LRCLib) {
	t.Helper()

	s := &lrclibServer{results: results}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if r.URL.Path != "/api/search" {
			http.NotFound(w, r)
			return
		}
		s.queries = append(s.queries, r.URL.RawQuery)
		if s.status != 0 {
			w.WriteHeader(s.status)
			return
		}
		body, ok := s.results[r.URL.RawQuery]
		if !ok {
			body = `[]`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return s, &lyrics.LRCLib{BaseURL: srv.URL}
}

func (s *lrclibServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func TestLRCLibFirstResult(t *testing.T) {
	t.Parallel()

	srv, src := newLRCLibServer(t, map[string]string{
		"track_name=Yellow%20Submarine&artist_name=The%20Beatles": `[
			{"id": 1, "trackName": "Yellow Submarine", "artistName": "The Beatles", "albumName": "Revolver", "duration": 158, "syncedLyrics": "[00:01.00] In the town"},
			{"id": 2, "trackName": "Yellow Submarine", "artistName": "The Beatles", "syncedLyrics": "[00:02.00] second"}
		]`,
	})

	got, err := src.Search(context.Background(), "The Beatles", "Yellow Submarine")
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00] In the town", got)
	assert.Equal(t, []string{"track_name=Yellow%20Submarine&artist_name=The%20Beatles"}, srv.seen())
}

func TestLRCLibEscaping(t *testing.T) {
	t.Parallel()

	srv, src := newLRCLibServer(t, nil)

	_, err := src.Search(context.Background(), "Simon & Garfunkel", "1+1=2?")
	require.ErrorIs(t, err, lyrics.ErrLyricsNotFound)
	assert.Equal(t, []string{"track_name=1%2B1%3D2%3F&artist_name=Simon%20%26%20Garfunkel"}, srv.seen())
}

func TestLRCLibOnlyFirstRecordCounts(t *testing.T) {
	t.Parallel()

	_, src := newLRCLibServer(t, map[string]string{
		"track_name=Plain&artist_name=Band": `[
			{"trackName": "Plain", "syncedLyrics": null, "plainLyrics": "no timing"},
			{"trackName": "Plain", "syncedLyrics": "[00:01.00] synced"}
		]`,
		"track_name=Blank&artist_name=Band":  `[{"trackName": "Blank", "syncedLyrics": ""}]`,
		"track_name=Absent&artist_name=Band": `[{"trackName": "Absent"}]`,
	})

	for _, song := range []string{"Plain", "Blank", "Absent", "Unknown"} {
		got, err := src.Search(context.Background(), "Band", song)
		require.ErrorIs(t, err, lyrics.ErrLyricsNotFound, song)
		assert.Empty(t, got)
	}
}

func TestLRCLibFallbackQuery(t *testing.T) {
	t.Parallel()

	srv, src := newLRCLibServer(t, map[string]string{
		"q=Yellow%20Coldplay": `[{"syncedLyrics": "[00:01.00] Look at the stars"}]`,
	})

	_, err := src.Search(context.Background(), "Coldplay", "Yellow")
	require.ErrorIs(t, err, lyrics.ErrLyricsNotFound)
	assert.Len(t, srv.seen(), 1)

	src.FallbackQuery = true
	got, err := src.Search(context.Background(), "Coldplay", "Yellow")
	require.NoError(t, err)
	assert.Equal(t, "[00:01.00] Look at the stars", got)
	assert.Equal(t, []string{
		"track_name=Yellow&artist_name=Coldplay",
		"track_name=Yellow&artist_name=Coldplay",
		"q=Yellow%20Coldplay",
	}, srv.seen())
}

func TestLRCLibErrors(t *testing.T) {
	t.Parallel()

	srv, src := newLRCLibServer(t, map[string]string{
		"track_name=Bad&artist_name=Band": `{"not": "an array"`,
	})

	_, err := src.Search(context.Background(), "Band", "Bad")
	require.Error(t, err)
	require.NotErrorIs(t, err, lyrics.ErrLyricsNotFound)

	srv.mu.Lock()
	srv.status = http.StatusInternalServerError
	srv.mu.Unlock()

	_, err = src.Search(context.Background(), "Band", "Any")
	require.Error(t, err)

	_, ok := lyrics.Fetch(context.Background(), src, "Any", "Band")
	assert.False(t, ok)
}

func TestLRCLibUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	src := &lyrics.LRCLib{BaseURL: srv.URL}
	got, ok := lyrics.Fetch(context.Background(), src, "Yellow", "Coldplay")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestLRCLibRetries(t *testing.T) {
	t.Parallel()

	srv, src := newLRCLibServer(t, nil)
	srv.status = http.StatusServiceUnavailable
	src.Retries = 2
	src.RetryInterval = time.Millisecond

	_, err := src.Search(context.Background(), "Band", "Song")
	require.Error(t, err)
	assert.Len(t, srv.seen(), 3)
}
