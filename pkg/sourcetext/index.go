package sourcetext

import (
	"container/list"
	"os"
	"strings"
)

// DefaultCacheSize is the number of files kept in memory by an Index.
const DefaultCacheSize = 3

// Index loads source files as lines and keeps the most recently used ones in memory.
//
// Index is not safe for concurrent use. Each worker owns its own Index.
type Index struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
}

type indexEntry struct {
	path  string
	lines []string
}

// NewIndex returns an Index holding at most capacity files. A capacity below one uses DefaultCacheSize.
func NewIndex(capacity int) *Index {
	if capacity < 1 {
		capacity = DefaultCacheSize
	}
	return &Index{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Lines returns the lines of the file at path with their terminators preserved.
func (ix *Index) Lines(path string) ([]string, error) {
	if el, ok := ix.entries[path]; ok {
		ix.lru.MoveToFront(el)
		return el.Value.(*indexEntry).lines, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	lines := SplitLines(string(data))
	ix.entries[path] = ix.lru.PushFront(&indexEntry{path: path, lines: lines})

	for ix.lru.Len() > ix.capacity {
		oldest := ix.lru.Back()
		ix.lru.Remove(oldest)
		delete(ix.entries, oldest.Value.(*indexEntry).path)
	}
	return lines, nil
}

// Len returns the number of cached files.
func (ix *Index) Len() int {
	return ix.lru.Len()
}

// Cached reports whether path is currently held in memory.
func (ix *Index) Cached(path string) bool {
	_, ok := ix.entries[path]
	return ok
}

// SplitLines splits text after every "\n". A trailing fragment without a terminator is kept.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
