// Package runlog is the ordered, append-only progress log of a folder run. It is safe to read
// from one goroutine while a run appends from another.
package runlog

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

type Kind string

const (
	KindFile        Kind = "file"
	KindExtracted   Kind = "extracted"
	KindSkip        Kind = "skip"
	KindFetch       Kind = "fetch"
	KindWritten     Kind = "written"
	KindEmbedded    Kind = "embedded"
	KindWriteFailed Kind = "write-failed"
	KindNotFound    Kind = "not-found"
	KindProgress    Kind = "progress"
	KindSummary     Kind = "summary"
	KindError       Kind = "error"
)

type Entry struct {
	Time    time.Time `json:"time"`
	Kind    Kind      `json:"kind"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
}

func (e Entry) String() string {
	return e.Message
}

// Log is usable as a zero value.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	gen     uint64
	closed  bool
	changed chan struct{}
}

func (l *Log) Append(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	l.notify()
}

func (l *Log) Appendf(kind Kind, path string, format string, a ...any) {
	l.Append(Entry{Kind: kind, Path: path, Message: fmt.Sprintf(format, a...)})
}

// Clear empties the log. Followers start again from the first entry appended after.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.gen++
	l.notify()
}

// Close marks the log finished. Followers end once they have sent every entry.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	l.notify()
}

func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.entries)
}

func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		lines = append(lines, e.Message)
	}
	return lines
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Follow sends every entry of the log in order, starting with those already present, until ctx
// is done or the log is closed. Nothing is dropped, a slow reader only holds back its own channel.
func (l *Log) Follow(ctx context.Context) <-chan Entry {
	ch := make(chan Entry)
	go func() {
		defer close(ch)

		l.mu.Lock()
		gen := l.gen
		l.mu.Unlock()

		var cursor int
		for {
			l.mu.Lock()
			if l.gen != gen {
				gen, cursor = l.gen, 0
			}
			pending := slices.Clone(l.entries[cursor:])
			cursor = len(l.entries)
			closed := l.closed
			changed := l.wait()
			l.mu.Unlock()

			for _, e := range pending {
				select {
				case ch <- e:
				case <-ctx.Done():
					return
				}
			}
			if closed {
				return
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// must hold mu
func (l *Log) wait() <-chan struct{} {
	if l.changed == nil {
		l.changed = make(chan struct{})
	}
	return l.changed
}

// must hold mu
func (l *Log) notify() {
	if l.changed != nil {
		close(l.changed)
		l.changed = nil
	}
}
