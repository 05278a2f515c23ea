package lyricsdlflag

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.senan.xyz/flagconf"

	"github.com/caberfan/lyricsdl"
	"github.com/caberfan/lyricsdl/addon"
	"github.com/caberfan/lyricsdl/clientutil"
	"github.com/caberfan/lyricsdl/lyrics"
	"github.com/caberfan/lyricsdl/notifications"
	"github.com/caberfan/lyricsdl/researchlink"
)

var logLevel slog.LevelVar

func init() {
	h := &slogHandler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}),
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(slog.LevelError)
}

var hadSlogError atomic.Bool

func ExitError() {
	if hadSlogError.Load() {
		os.Exit(1)
	}
	os.Exit(0)
}

type slogHandler struct {
	slog.Handler
}

func (n *slogHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level == slog.LevelError {
		hadSlogError.Store(true)
	}
	return n.Handler.Handle(ctx, r)
}

func DefaultClient() {
	chain := clientutil.Chain(
		clientutil.WithLogging(slog.Default()),
		clientutil.WithUserAgent(fmt.Sprintf(`%s/%s`, lyricsdl.Name, lyricsdl.Version)),
	)

	http.DefaultTransport = chain(http.DefaultTransport)
}

// run once flags, env, and config are all parsed
var afterParse []func()

func Parse() {
	userConfig, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}

	defaultConfigPath := filepath.Join(userConfig, lyricsdl.Name, "config")
	configPath := flag.String("config-path", defaultConfigPath, "Path to config file")

	printVersion := flag.Bool("version", false, "Print the version and exit")
	printConfig := flag.Bool("config", false, "Print the parsed config and exit")

	flag.TextVar(&logLevel, "log-level", &logLevel, "Set the logging level")

	flag.Parse()
	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string { return lyricsdl.Name }
	flagconf.ParseEnv()
	flagconf.ParseConfig(*configPath)

	for _, f := range afterParse {
		f()
	}

	if *printVersion {
		fmt.Printf("%s %s\n", filepath.Base(flag.CommandLine.Name()), lyricsdl.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-24s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

func Config() *lyricsdl.Config {
	var cfg lyricsdl.Config

	var lrclib lyrics.LRCLib
	flag.StringVar(&lrclib.BaseURL, "lrclib-base-url", lyrics.LRCLibBaseURL, "LRCLIB base URL")
	flag.DurationVar(&lrclib.RateLimit, "lrclib-rate-limit", 0, "LRCLIB rate limit duration")
	flag.Uint64Var(&lrclib.Retries, "lrclib-retries", 0, "Retry failed LRCLIB requests this many times with exponential backoff")
	flag.BoolVar(&lrclib.FallbackQuery, "lrclib-fallback-query", false, "Repeat searches with no results as a free text query")

	var sources lyrics.ChainSource
	flag.Var(&sourcesParser{&sources, &lrclib}, "lyrics-source", "Lyrics source to query, one of lrclib, genius, musixmatch, tried in order (stackable) (default lrclib)")

	flag.IntVar(&cfg.FetchWorkers, "fetch-workers", 1, "Number of files to process at once")
	flag.BoolVar(&cfg.SkipExisting, "skip-existing", false, "Don't fetch lyrics for files which already have them")
	flag.BoolVar(&cfg.DryRun, "dry-run", false, "Do everything except writing files")
	cfg.ResearchLinks = &researchlink.Builder{}
	flag.Var(&researchLinkParser{cfg.ResearchLinks}, "research-link", "Define a helper URL to help find lyrics for a track with none (stackable)")
	flag.Var(&addonsParser{&cfg.Addons}, "addon", "Define an addon to run on files that got lyrics (see [Addons](#addons)) (stackable)")

	afterParse = append(afterParse, func() {
		if len(sources) == 0 {
			sources = append(sources, &lrclib)
		}
		cfg.Source = sources
	})

	return &cfg
}

func Notifications() *notifications.Notifications {
	var n notifications.Notifications
	flag.Var(&notificationsParser{&n}, "notification-uri", "Add a shoutrrr notification URI for an event (see [Notifications](#notifications)) (stackable)")
	return &n
}

var _ flag.Value = (*sourcesParser)(nil)
var _ flag.Value = (*notificationsParser)(nil)
var _ flag.Value = (*addonsParser)(nil)
var _ flag.Value = (*researchLinkParser)(nil)

type sourcesParser struct {
	sources *lyrics.ChainSource
	lrclib  *lyrics.LRCLib
}

func (s *sourcesParser) Set(value string) error {
	name := strings.TrimSpace(value)
	if name == "lrclib" {
		*s.sources = append(*s.sources, s.lrclib)
		return nil
	}
	src, err := lyrics.NewSource(name, 0)
	if err != nil {
		return err
	}
	*s.sources = append(*s.sources, src)
	return nil
}
func (s sourcesParser) String() string {
	if s.sources == nil {
		return ""
	}
	return s.sources.String()
}

type notificationsParser struct{ *notifications.Notifications }

func (n *notificationsParser) Set(value string) error {
	eventsRaw, uri, ok := strings.Cut(value, " ")
	if !ok {
		return fmt.Errorf("invalid notification uri format. expected eg \"ev1,ev2 uri\"")
	}
	var lineErrs []error
	for _, ev := range strings.Split(eventsRaw, ",") {
		ev, uri = strings.TrimSpace(ev), strings.TrimSpace(uri)
		err := n.AddURI(notifications.Event(ev), uri)
		lineErrs = append(lineErrs, err)
	}
	return errors.Join(lineErrs...)
}
func (n notificationsParser) String() string {
	if n.Notifications == nil {
		return ""
	}
	var parts []string
	n.Notifications.IterMappings(func(e notifications.Event, uri string) {
		url, _ := url.Parse(uri)
		parts = append(parts, fmt.Sprintf("%s: %s://%s/...", e, url.Scheme, url.Host))
	})
	return strings.Join(parts, ", ")
}

type addonsParser struct {
	addons *[]addon.Addon
}

func (a *addonsParser) Set(value string) error {
	name, rest, _ := strings.Cut(strings.TrimLeft(value, " "), " ")
	addn, err := addon.New(name, rest)
	if err != nil {
		return fmt.Errorf("addon %q: %w", name, err)
	}
	*a.addons = append(*a.addons, addn)
	return nil
}
func (a addonsParser) String() string {
	if a.addons == nil {
		return ""
	}
	var parts []string
	for _, a := range *a.addons {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, ", ")
}

type researchLinkParser struct{ *researchlink.Builder }

func (r *researchLinkParser) Set(value string) error {
	name, value, _ := strings.Cut(value, " ")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	return r.AddSource(name, value)
}
func (r researchLinkParser) String() string {
	if r.Builder == nil {
		return ""
	}
	var names []string
	for name := range r.IterSources() {
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
