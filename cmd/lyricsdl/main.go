package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.senan.xyz/table/table"

	"github.com/caberfan/lyricsdl"
	"github.com/caberfan/lyricsdl/cmd/internal/lyricsdlflag"
	"github.com/caberfan/lyricsdl/notifications"
	"github.com/caberfan/lyricsdl/runlog"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  $ %s [<options>] sidecar <dir>...\n", flag.CommandLine.Name())
		fmt.Fprintf(flag.CommandLine.Output(), "  $ %s [<options>] embed <dir>...\n", flag.CommandLine.Name())
		fmt.Fprintf(flag.CommandLine.Output(), "\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

var cfg = lyricsdlflag.Config()
var notifs = lyricsdlflag.Notifications()

func main() {
	defer lyricsdlflag.ExitError()

	lyricsdlflag.DefaultClient()
	lyricsdlflag.Parse()

	mode, err := lyricsdl.ParseMode(flag.Arg(0))
	if err != nil {
		slog.Error("parse mode", "err", err)
		flag.Usage()
		return
	}
	dirs := flag.Args()[1:]
	if len(dirs) == 0 {
		slog.Error("need at least one dir")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	t := table.NewStringWriter()
	fmt.Fprintf(t, "dir\tscanned\taffected\tfailed\n")

	for _, dir := range dirs {
		res, err := runDir(ctx, dir, mode)
		fmt.Fprintf(t, "%s\t%d\t%d\t%d\n", dir, res.Scanned, res.Affected, res.Failed)
		if err != nil {
			slog.Error("run", "dir", dir, "err", err)
			notifs.Sendf(ctx, notifications.RunError, "Run in %q failed: %v", dir, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if res.Failed > 0 {
			notifs.Sendf(ctx, notifications.RunError, "Run in %q finished, but %d of %d files failed", dir, res.Failed, res.Scanned)
			continue
		}
		notifs.Sendf(ctx, notifications.RunComplete, "Run in %q finished, %d of %d files got lyrics", dir, res.Affected, res.Scanned)
	}

	fmt.Println()
	for _, row := range strings.Split(strings.TrimRight(t.String(), "\n"), "\n") {
		fmt.Println(strings.TrimRight(row, " "))
	}
}

func runDir(ctx context.Context, dir string, mode lyricsdl.Mode) (lyricsdl.RunResult, error) {
	var log runlog.Log

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for e := range log.Follow(context.Background()) {
			fmt.Println(e.Message)
		}
	}()

	res, err := lyricsdl.Run(ctx, cfg, dir, mode, &log)
	log.Close()
	<-printed

	return res, err
}
