package addon

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Addon represents a plugin that can process files after a run has written lyrics for them.
type Addon interface {
	// ProcessFiles is called with the paths of the files that got lyrics.
	ProcessFiles(context.Context, []string) error
}

var registry = map[string]func(conf string) (Addon, error){}
var registryMu sync.Mutex

// Register adds an addon to the global addon registry
func Register[A Addon](name string, addn func(conf string) (A, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, ok := registry[name]; ok {
		panic(fmt.Errorf("addon %q already registered", name))
	}

	registry[name] = func(conf string) (Addon, error) {
		return addn(conf)
	}
}

// New initialises a new addon from the registry with the provided conf.
func New(name string, conf string) (Addon, error) {
	registryMu.Lock()
	newAddon, ok := registry[name]
	registryMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("addon not found")
	}

	addn, err := newAddon(conf)
	if err != nil {
		return nil, err
	}
	return addn, nil
}

func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()

	var names []string
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
