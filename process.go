package lyricsdl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caberfan/lyricsdl/diff"
	"github.com/caberfan/lyricsdl/lyrics"
	"github.com/caberfan/lyricsdl/researchlink"
	"github.com/caberfan/lyricsdl/runlog"
	"github.com/caberfan/lyricsdl/sidecar"
	"github.com/caberfan/lyricsdl/tags"
)

func (r *runner) processFile(ctx context.Context, path string, format tags.Format) outcome {
	o := outcome{counted: true, path: path}
	add := func(kind runlog.Kind, f string, a ...any) {
		o.entries = append(o.entries, runlog.Entry{Kind: kind, Path: path, Message: fmt.Sprintf(f, a...)})
	}

	add(runlog.KindFile, "File: %s", path)

	key := tags.ReadKey(path)
	add(runlog.KindExtracted, "Title: %s, Artist: %s, Album: %s (from %s)", orNone(key.Title), orNone(key.Artist), orNone(key.Album), key.Source)

	if !key.Complete() {
		add(runlog.KindSkip, "Skipping %s: missing metadata", path)
		return o
	}

	if r.cfg.SkipExisting {
		existing, err := r.existingLyrics(path, format)
		if err != nil {
			slog.DebugContext(ctx, "reading existing lyrics", "path", path, "err", err)
		}
		if existing != "" {
			add(runlog.KindSkip, "Skipping %s: already has lyrics", path)
			return o
		}
	}

	add(runlog.KindFetch, "Fetching lyrics for %s by %s", key.Title, key.Artist)

	lyricData, ok := lyrics.Fetch(ctx, r.cfg.Source, key.Title, key.Artist)
	if ctx.Err() != nil {
		add(runlog.KindError, "Cancelled while fetching lyrics for %s", path)
		return o
	}
	if !ok {
		add(runlog.KindNotFound, "No lyrics found for %s by %s", key.Title, key.Artist)
		r.logResearchLinks(ctx, path, key)
		return o
	}

	switch r.mode {
	case ModeSidecar:
		previous, err := sidecar.Read(path)
		if err != nil {
			slog.DebugContext(ctx, "reading existing sidecar", "path", path, "err", err)
		}
		if r.cfg.DryRun {
			add(runlog.KindWritten, "Would save lyrics to %s", sidecar.Path(path))
		} else {
			lrcPath, err := sidecar.Write(path, lyricData)
			if err != nil {
				add(runlog.KindWriteFailed, "Failed to save lyrics for %s: %v", path, err)
				o.failed = true
				return o
			}
			add(runlog.KindWritten, "Saved lyrics to %s", lrcPath)
		}
		logChange(ctx, sidecar.Path(path), previous, lyricData)

	case ModeEmbed:
		res, err := tags.Embed(path, format, lyricData, r.cfg.DryRun)
		if err != nil {
			add(runlog.KindWriteFailed, "Failed to embed lyrics into %s: %v", path, err)
			o.failed = true
			return o
		}
		if r.cfg.DryRun {
			add(runlog.KindEmbedded, "Would embed lyrics into %s", path)
		} else {
			add(runlog.KindEmbedded, "Embedded lyrics into %s", path)
		}
		logChange(ctx, path, res.Previous, lyricData)
	}

	o.affected = true
	return o
}

func (r *runner) existingLyrics(path string, format tags.Format) (string, error) {
	switch r.mode {
	case ModeSidecar:
		return sidecar.Read(path)
	case ModeEmbed:
		return tags.ReadLyrics(path, format)
	}
	return "", nil
}

func logChange(ctx context.Context, path string, before, after string) {
	if before == "" {
		return
	}
	d := diff.Lyrics(before, after)
	if !d.Changed() {
		return
	}
	slog.DebugContext(ctx, "replacing lyrics", "path", path, "distance", d.Distance, "score", fmt.Sprintf("%.1f", d.Score()))
}

func (r *runner) logResearchLinks(ctx context.Context, path string, key tags.TrackKey) {
	links, err := r.cfg.ResearchLinks.Build(researchlink.Query{Title: key.Title, Artist: key.Artist, Album: key.Album})
	if err != nil {
		slog.WarnContext(ctx, "build research links", "path", path, "err", err)
	}
	for _, l := range links {
		slog.InfoContext(ctx, "research link", "path", path, "name", l.Name, "url", l.URL)
	}
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
