package addon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/caberfan/lyricsdl/sidecar"
	"github.com/caberfan/lyricsdl/tags"
)

func init() {
	Register("sidecar", NewSidecarAddon)
}

// SidecarAddon copies lyrics embedded in each file out to an .lrc sidecar, so players that
// only look for sidecars find them too.
type SidecarAddon struct {
	overwrite bool
}

func NewSidecarAddon(conf string) (SidecarAddon, error) {
	var a SidecarAddon
	for _, arg := range strings.Fields(conf) {
		switch arg {
		case "overwrite":
			a.overwrite = true
		default:
			return SidecarAddon{}, fmt.Errorf("unknown option %q", arg)
		}
	}
	return a, nil
}

func (a SidecarAddon) ProcessFiles(ctx context.Context, paths []string) error {
	var pathErrs = make([]error, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pathErrs[i] = a.processFile(path)
		}()
	}
	wg.Wait()

	return errors.Join(pathErrs...)
}

func (a SidecarAddon) processFile(path string) error {
	lyricData, err := tags.ReadLyrics(path, tags.FormatOf(path))
	if err != nil {
		return fmt.Errorf("read lyrics: %w", err)
	}
	if lyricData == "" {
		return nil
	}
	if !a.overwrite {
		existing, err := sidecar.Read(path)
		if err != nil {
			return fmt.Errorf("read existing sidecar: %w", err)
		}
		if existing != "" {
			return nil
		}
	}
	if _, err := sidecar.Write(path, lyricData); err != nil {
		return err
	}
	return nil
}

func (a SidecarAddon) String() string {
	if a.overwrite {
		return "sidecar (overwrite)"
	}
	return "sidecar"
}
