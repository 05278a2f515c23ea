// Package lyricsdl walks a folder of audio files, looks up synced lyrics for each track, and
// stores them either as .lrc sidecar files or inside the files' own tags.
package lyricsdl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/caberfan/lyricsdl/addon"
	"github.com/caberfan/lyricsdl/fileutil"
	"github.com/caberfan/lyricsdl/lyrics"
	"github.com/caberfan/lyricsdl/researchlink"
	"github.com/caberfan/lyricsdl/runlog"
	"github.com/caberfan/lyricsdl/tags"
)

var ErrUnknownMode = errors.New("unknown mode")

type Mode string

const (
	ModeSidecar Mode = "sidecar"
	ModeEmbed   Mode = "embed"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeSidecar, ModeEmbed:
		return m, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMode, s)
}

type Config struct {
	Source lyrics.Source

	DryRun       bool
	SkipExisting bool
	// FetchWorkers is how many files are processed at once. The log reads the same either way.
	FetchWorkers int

	Addons []addon.Addon
	// ResearchLinks are logged for tracks no source had lyrics for.
	ResearchLinks *researchlink.Builder
}

type RunResult struct {
	Scanned  int `json:"scanned"`
	Affected int `json:"affected"`
	Failed   int `json:"failed"`
}

// Run processes every mp3 and flac file under root. The log is cleared first, then gets each
// file's events followed by running totals, and the final totals last. Problems with single
// files are logged and don't stop the run. An error is returned only if root can't be read or
// ctx is done, along with the counts so far.
func Run(ctx context.Context, cfg *Config, root string, mode Mode, log *runlog.Log) (RunResult, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return RunResult{}, err
	}
	if log == nil {
		log = &runlog.Log{}
	}
	log.Clear()

	start := time.Now()
	r := &runner{cfg: cfg, mode: mode, log: log}

	outcomes := make(chan outcome)
	flushed := make(chan struct{})
	go func() {
		defer close(flushed)
		r.flushInOrder(ctx, outcomes)
	}()

	workers := max(1, cfg.FetchWorkers)
	g := new(errgroup.Group)
	g.SetLimit(workers)

	var idx int
	walkErr := fileutil.WalkNatural(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == root {
				return err
			}
			i := idx
			idx++
			outcomes <- outcome{idx: i, entries: []runlog.Entry{
				{Kind: runlog.KindError, Path: path, Message: fmt.Sprintf("Error reading %s: %v", path, err)},
			}}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		format := tags.FormatOf(path)
		if format == tags.FormatUnknown {
			return nil
		}

		i := idx
		idx++
		g.Go(func() error {
			o := r.processFile(ctx, path, format)
			o.idx = i
			outcomes <- o
			return nil
		})
		return nil
	})
	_ = g.Wait()
	close(outcomes)
	<-flushed

	res := r.result()
	switch {
	case walkErr != nil && ctx.Err() != nil:
		log.Appendf(runlog.KindError, "", "Run cancelled after %d files", res.Scanned)
		return res, ctx.Err()
	case walkErr != nil:
		log.Appendf(runlog.KindError, root, "Error reading %s: %v", root, walkErr)
		return res, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	r.runAddons(ctx)

	switch mode {
	case ModeSidecar:
		log.Appendf(runlog.KindSummary, "", "Lyrics written for %d files.", res.Affected)
	case ModeEmbed:
		log.Appendf(runlog.KindSummary, "", "Lyrics embedded in %d files.", res.Affected)
	}
	log.Appendf(runlog.KindSummary, "", "Scanned %d files in total.", res.Scanned)

	level := slog.LevelInfo
	if res.Failed > 0 {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "run finished", "root", root, "mode", mode, "took", time.Since(start), "scanned", res.Scanned, "affected", res.Affected, "failed", res.Failed)

	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

type runner struct {
	cfg  *Config
	mode Mode
	log  *runlog.Log

	mu       sync.Mutex
	res      RunResult
	affected []string
}

func (r *runner) result() RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.res
}

// outcome is everything one step of the walk adds to the log, flushed in walk order.
type outcome struct {
	idx      int
	entries  []runlog.Entry
	counted  bool
	affected bool
	failed   bool
	path     string
}

func (r *runner) flushInOrder(ctx context.Context, outcomes <-chan outcome) {
	pending := map[int]outcome{}
	var next int
	for o := range outcomes {
		pending[o.idx] = o
		for {
			o, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			r.flush(ctx, o)
		}
	}
}

func (r *runner) flush(ctx context.Context, o outcome) {
	for _, e := range o.entries {
		r.log.Append(e)
		switch e.Kind {
		case runlog.KindWriteFailed, runlog.KindError:
			slog.ErrorContext(ctx, e.Message, "path", e.Path)
		default:
			slog.DebugContext(ctx, e.Message, "kind", e.Kind)
		}
	}
	if !o.counted {
		return
	}

	r.mu.Lock()
	r.res.Scanned++
	if o.affected {
		r.res.Affected++
		r.affected = append(r.affected, o.path)
	}
	if o.failed {
		r.res.Failed++
	}
	res := r.res
	r.mu.Unlock()

	r.log.Appendf(runlog.KindProgress, "", "File number: %d, files with lyrics: %d", res.Scanned, res.Affected)
}

func (r *runner) runAddons(ctx context.Context) {
	if r.cfg.DryRun || len(r.affected) == 0 {
		return
	}
	for _, a := range r.cfg.Addons {
		if err := a.ProcessFiles(ctx, r.affected); err != nil {
			r.log.Appendf(runlog.KindError, "", "Addon %s failed: %v", a, err)
			slog.ErrorContext(ctx, "run addon", "addon", a, "err", err)
		}
	}
}
