// Package diff measures how much a track's lyrics change when they are replaced.
package diff

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

var dmp = diffmatchpatch.New()

type Diff struct {
	Before, After string
	Changes       []diffmatchpatch.Diff
	// Distance is the Levenshtein distance in runes.
	Distance int
}

func Lyrics(before, after string) Diff {
	changes := dmp.DiffMain(before, after, false)
	return Diff{
		Before:   before,
		After:    after,
		Changes:  changes,
		Distance: dmp.DiffLevenshtein(changes),
	}
}

func (d Diff) Changed() bool {
	return d.Before != d.After
}

// Score is how similar After is to Before, from 0 to 100.
func (d Diff) Score() float64 {
	total := max(len([]rune(d.Before)), len([]rune(d.After)))
	if total == 0 {
		return 100
	}
	return 100 - (float64(d.Distance) * 100 / float64(total))
}
