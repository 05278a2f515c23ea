package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/caberfan/lyricsdl/clientutil"
)

const LRCLibBaseURL = `https://lrclib.net`

// LRCLib searches the LRCLIB API and returns the time-synced lyrics of the first result.
type LRCLib struct {
	BaseURL   string
	RateLimit time.Duration
	Retries   uint64
	// RetryInterval is the first backoff wait, the backoff default when zero.
	RetryInterval time.Duration
	// FallbackQuery repeats an empty search once as a free text query of title and artist.
	FallbackQuery bool

	initOnce   sync.Once
	HTTPClient *http.Client
}

type lrclibRecord struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	SyncedLyrics *string `json:"syncedLyrics"`
}

func (l *LRCLib) Search(ctx context.Context, artist, song string) (string, error) {
	l.initOnce.Do(func() {
		l.HTTPClient = clientutil.Wrap(l.HTTPClient, clientutil.Chain(
			clientutil.WithRateLimit(l.RateLimit),
			clientutil.WithRetry(l.Retries, l.RetryInterval),
		))
	})

	records, err := l.search(ctx, "track_name="+queryEscape(song)+"&artist_name="+queryEscape(artist))
	if err != nil {
		return "", err
	}
	if len(records) == 0 && l.FallbackQuery {
		records, err = l.search(ctx, "q="+queryEscape(song+" "+artist))
		if err != nil {
			return "", err
		}
	}
	if len(records) == 0 {
		return "", ErrLyricsNotFound
	}

	first := records[0]
	slog.DebugContext(ctx, "lrclib match", "track", first.TrackName, "artist", first.ArtistName, "album", first.AlbumName, "duration", first.Duration)

	if first.SyncedLyrics == nil || *first.SyncedLyrics == "" {
		return "", ErrLyricsNotFound
	}
	return *first.SyncedLyrics, nil
}

func (l *LRCLib) search(ctx context.Context, query string) ([]lrclibRecord, error) {
	base := l.BaseURL
	if base == "" {
		base = LRCLibBaseURL
	}
	reqURL := strings.TrimSuffix(base, "/") + "/api/search?" + query

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("make request: %w", err)
	}
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("req search: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode/100 != 2:
		return nil, fmt.Errorf("req search: status %d", resp.StatusCode)
	}

	var records []lrclibRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	return records, nil
}

func (l *LRCLib) String() string { return "lrclib" }

// queryEscape percent-encodes s for a query value, with spaces as %20.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
