package lyrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/rainycape/unidecode"
	"golang.org/x/net/html"

	"github.com/caberfan/lyricsdl/clientutil"
)

var ErrLyricsNotFound = errors.New("lyrics not found")

type Source interface {
	Search(ctx context.Context, artist, song string) (string, error)
}

// Fetch looks up lyrics for a track, collapsing every failure into ok == false. Nothing is
// requested unless both title and artist are present.
func Fetch(ctx context.Context, src Source, title, artist string) (lyricData string, ok bool) {
	if title == "" || artist == "" {
		return "", false
	}
	lyricData, err := src.Search(ctx, artist, title)
	if err != nil {
		if !errors.Is(err, ErrLyricsNotFound) {
			slog.DebugContext(ctx, "fetching lyrics", "artist", artist, "title", title, "err", err)
		}
		return "", false
	}
	if lyricData == "" {
		return "", false
	}
	return lyricData, true
}

func NewSource(name string, rateLimit time.Duration) (Source, error) {
	switch name {
	case "lrclib":
		return &LRCLib{BaseURL: LRCLibBaseURL, RateLimit: rateLimit}, nil
	case "genius":
		return &Genius{RateLimit: rateLimit}, nil
	case "musixmatch":
		return &Musixmatch{RateLimit: rateLimit}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}

// ChainSource asks each source in order and returns the first lyrics found.
type ChainSource []Source

func (cs ChainSource) Search(ctx context.Context, artist, song string) (string, error) {
	var errs []error
	for _, src := range cs {
		lyricData, err := src.Search(ctx, artist, song)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if !errors.Is(err, ErrLyricsNotFound) {
				errs = append(errs, fmt.Errorf("%s: %w", src, err))
			}
			continue
		}
		if lyricData != "" {
			return lyricData, nil
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", ErrLyricsNotFound
}

func (cs ChainSource) String() string {
	var parts []string
	for _, src := range cs {
		parts = append(parts, fmt.Sprint(src))
	}
	return strings.Join(parts, ", ")
}

var musixmatchBaseURL = `https://www.musixmatch.com/lyrics`
var musixmatchSelectContent = cascadia.MustCompile(`div.r-1v1z2uz:nth-child(1)`)
var musixmatchIgnore = []string{"Still no lyrics here"}
var musixmatchEsc = strings.NewReplacer(
	" ", "-",
	"(", "",
	")", "",
	"[", "",
	"]", "",
)

type Musixmatch struct {
	RateLimit time.Duration

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (mm *Musixmatch) Search(ctx context.Context, artist, song string) (string, error) {
	mm.initOnce.Do(func() {
		mm.HTTPClient = clientutil.Wrap(mm.HTTPClient, clientutil.Chain(
			clientutil.WithRateLimit(mm.RateLimit),
		))
	})

	url, _ := url.Parse(musixmatchBaseURL)
	url = url.JoinPath(musixmatchEsc.Replace(unidecode.Unidecode(artist)))
	url = url.JoinPath(musixmatchEsc.Replace(unidecode.Unidecode(song)))

	lyricData, err := scrape(ctx, mm.HTTPClient, url.String(), musixmatchSelectContent)
	if err != nil {
		return "", err
	}
	for _, ig := range musixmatchIgnore {
		if strings.Contains(lyricData, ig) {
			return "", ErrLyricsNotFound
		}
	}
	return lyricData, nil
}

func (mm *Musixmatch) String() string { return "musixmatch" }

var geniusBaseURL = `https://genius.com`
var geniusSelectContent = cascadia.MustCompile(`div[class^="Lyrics__Container-"]`)
var geniusEsc = strings.NewReplacer(
	" ", "-",
	"(", "",
	")", "",
	"[", "",
	"]", "",
	"'", "",
	",", "",
	".", "",
)

type Genius struct {
	RateLimit time.Duration

	initOnce   sync.Once
	HTTPClient *http.Client
}

func (g *Genius) Search(ctx context.Context, artist, song string) (string, error) {
	g.initOnce.Do(func() {
		g.HTTPClient = clientutil.Wrap(g.HTTPClient, clientutil.Chain(
			clientutil.WithRateLimit(g.RateLimit),
		))
	})

	// use genius case rules to miminise redirects
	page := unidecode.Unidecode(fmt.Sprintf("%s-%s-lyrics", artist, song))
	page = strings.ToUpper(page[:1]) + strings.ToLower(page[1:])

	url, _ := url.Parse(geniusBaseURL)
	url = url.JoinPath(geniusEsc.Replace(page))

	return scrape(ctx, g.HTTPClient, url.String(), geniusSelectContent)
}

func (g *Genius) String() string { return "genius" }

func scrape(ctx context.Context, client *http.Client, url string, sel cascadia.Selector) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("make request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("req page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", ErrLyricsNotFound
	}

	node, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var out strings.Builder
	for _, match := range cascadia.QueryAll(node, sel) {
		iterText(match, func(s string) {
			out.WriteString(s + "\n")
		})
	}
	if out.Len() == 0 {
		return "", ErrLyricsNotFound
	}
	return out.String(), nil
}

func iterText(n *html.Node, f func(string)) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		f(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		iterText(c, f)
	}
}
