package sourcetext

import (
	"strings"
	"unicode"
)

// DefaultSearchBound is the number of offsets tried on each side of a recorded line.
const DefaultSearchBound = 100

// Relocator finds where a previously recorded line lives in the current version of a file.
type Relocator struct {
	index *Index
	bound int
}

// NewRelocator returns a Relocator reading files through index. A bound below one uses DefaultSearchBound.
func NewRelocator(index *Index, bound int) *Relocator {
	if bound < 1 {
		bound = DefaultSearchBound
	}
	return &Relocator{index: index, bound: bound}
}

// FindCurrentLine returns the 1-based line of path whose text matches recordedText,
// searching outward from recordedLine. Offsets 0 to bound-1 are tried; at each offset
// the line before the recorded position is tested ahead of the line after it.
func (r *Relocator) FindCurrentLine(path, recordedText string, recordedLine int) (int, error) {
	lines, err := r.index.Lines(path)
	if err != nil {
		return 0, err
	}

	want := trimRight(recordedText)
	origin := recordedLine - 1
	for offset := 0; offset < r.bound; offset++ {
		for _, idx := range [2]int{origin - offset, origin + offset} {
			if idx < 0 || idx >= len(lines) {
				continue
			}
			if trimRight(lines[idx]) == want {
				return idx + 1, nil
			}
		}
	}
	return 0, ErrNotFound
}

func trimRight(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
