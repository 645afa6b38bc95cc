package catalog

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-ignore/pkg/sourcetext"
)

// IsNegativeAnnotation reports whether an annotation asks for the finding to be reported again.
func IsNegativeAnnotation(annotation string) bool {
	switch strings.ToLower(strings.TrimSpace(annotation)) {
	case "no", "n":
		return true
	default:
		return false
	}
}

// Decide looks key up in prev. A known finding keeps the author, date and annotation
// of its previous entry and is suppressed unless the annotation is negative. An unknown
// finding keeps the provisional provenance and is suppressed only in update mode.
func Decide(prev Catalog, key Key, provisional Entry, update bool) (bool, Entry) {
	old, ok := prev[key]
	if !ok {
		return update, provisional
	}

	recorded := provisional
	recorded.Author = old.Author
	recorded.Date = old.Date
	recorded.Annotation = old.Annotation
	return !IsNegativeAnnotation(old.Annotation), recorded
}

// MergerOptions holds the defaults applied to findings not present in the previous catalog.
type MergerOptions struct {
	Author string
	Date   string
	Update bool
}

// Stats counts merger decisions.
type Stats struct {
	Findings   int
	Suppressed int
	Reported   int
	Known      int
	Unreadable int
}

var _ Filter = (*Merger)(nil)

// Merger decides every finding of one run against the previous catalog and
// accumulates the catalog to persist. It is not safe for concurrent use.
type Merger struct {
	prev   Catalog
	next   Catalog
	ws     *Workspace
	opts   MergerOptions
	logger hclog.Logger
	stats  Stats
}

// NewMerger returns a Merger deciding against prev.
func NewMerger(prev Catalog, ws *Workspace, opts MergerOptions, logger hclog.Logger) *Merger {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if prev == nil {
		prev = Catalog{}
	}
	return &Merger{
		prev:   prev,
		next:   Catalog{},
		ws:     ws,
		opts:   opts,
		logger: logger,
	}
}

// Decide records the decision for key and returns it together with the recorded entry.
func (m *Merger) Decide(key Key, provisional Entry) (bool, Entry) {
	suppressed, recorded := Decide(m.prev, key, provisional, m.opts.Update)
	m.next[key] = recorded

	m.stats.Findings++
	if _, ok := m.prev[key]; ok {
		m.stats.Known++
	}
	if suppressed {
		m.stats.Suppressed++
	} else {
		m.stats.Reported++
	}
	return suppressed, recorded
}

// Check decides f and returns whether it is suppressed together with the recorded entry.
// A line finding whose source cannot be read is reported and left out of the catalog.
func (m *Merger) Check(f Finding) (bool, Entry) {
	e, ok := m.provisional(f)
	if !ok {
		m.stats.Findings++
		m.stats.Reported++
		return false, e
	}
	return m.Decide(e.Key(), e)
}

// Keep reports whether f should stay in the analyzer output.
func (m *Merger) Keep(f Finding) bool {
	suppressed, _ := m.Check(f)
	return !suppressed
}

// provisional builds the entry a finding would get if it were new. It reports false when f points at a line whose source cannot be read.
// A line past the end of a readable file is recorded like a file-scoped finding.
func (m *Merger) provisional(f Finding) (Entry, bool) {
	message, extra := SplitMessage(f.Text())
	e := Entry{
		Kind:    strings.Join(strings.Fields(f.Kind), "-"),
		Path:    m.ws.Rel(f.Path),
		Symbol:  singleLine(f.Symbol),
		Message: message,
		Author:  m.opts.Author,
		Date:    m.opts.Date,
	}

	if f.Line <= 0 {
		e.Extra = extra
		return e, true
	}

	w, err := m.ws.Window(e.Path, f.Line, f.Line)
	if err != nil {
		if errors.Is(err, sourcetext.ErrLineOutOfRange) {
			m.logger.Warn("line is past the end of the file, using message fingerprint", "path", e.Path, "line", f.Line)
			e.Extra = extra
			return e, true
		}
		m.stats.Unreadable++
		m.logger.Warn("source unreadable, reporting finding", "path", e.Path, "line", f.Line, "error", err)
		return e, false
	}
	e.Source = &w
	return e, true
}

// Catalog returns the catalog accumulated so far.
func (m *Merger) Catalog() Catalog {
	return m.next
}

// Stats returns decision counters.
func (m *Merger) Stats() Stats {
	return m.stats
}
