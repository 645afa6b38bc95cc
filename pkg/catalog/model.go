package catalog

import (
	"sort"

	"github.com/scan-io-git/scanio-ignore/pkg/sourcetext"
)

// Key identifies a finding independently of its line number.
type Key struct {
	Kind        string
	Path        string
	Symbol      string
	Message     string
	Fingerprint string
}

// Entry is a catalog record: the identifying fields of a finding plus its provenance
// and the source context captured around it.
type Entry struct {
	Kind    string
	Path    string
	Symbol  string
	Message string
	// Extra holds the message lines after the first. It is only kept for entries
	// without source context, where it contributes to the fingerprint.
	Extra string

	Author string
	Date   string
	// Annotation is the reviewer's free text. Empty means absent.
	Annotation string

	// Source is nil for file-scoped findings and for findings whose source could not be read.
	Source *sourcetext.Window
}

// Key returns the stable identity of the entry.
func (e Entry) Key() Key {
	return Key{
		Kind:        e.Kind,
		Path:        e.Path,
		Symbol:      e.Symbol,
		Message:     e.Message,
		Fingerprint: e.Fingerprint(),
	}
}

// Fingerprint returns the context window text, or a hash of the message when no context exists.
func (e Entry) Fingerprint() string {
	if e.Source != nil {
		return e.Source.Text
	}
	return FallbackFingerprint(e.Message, e.Extra)
}

// Line returns the current line of the entry, 0 for entries without context.
func (e Entry) Line() int {
	if e.Source == nil {
		return 0
	}
	return e.Source.TargetLine
}

// RecordedLine returns the line the entry was persisted with, 0 for entries without context.
func (e Entry) RecordedLine() int {
	if e.Source == nil {
		return 0
	}
	return e.Source.RecordedLine
}

// Equal compares every field, including both line numbers of the captured context.
func (e Entry) Equal(other Entry) bool {
	if e.Kind != other.Kind || e.Path != other.Path || e.Symbol != other.Symbol ||
		e.Message != other.Message || e.Extra != other.Extra ||
		e.Author != other.Author || e.Date != other.Date || e.Annotation != other.Annotation {
		return false
	}
	if e.Source == nil || other.Source == nil {
		return e.Source == nil && other.Source == nil
	}
	return *e.Source == *other.Source
}

// Catalog maps finding identities to their entries.
type Catalog map[Key]Entry

// Add stores e under its own key, replacing any previous entry.
func (c Catalog) Add(e Entry) {
	c[e.Key()] = e
}

// Entries returns the entries in encode order: path, current line, kind, symbol, message.
func (c Catalog) Entries() []Entry {
	entries := make([]Entry, 0, len(c))
	for _, e := range c {
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.Path != b.Path:
			return a.Path < b.Path
		case a.Line() != b.Line():
			return a.Line() < b.Line()
		case a.Kind != b.Kind:
			return a.Kind < b.Kind
		case a.Symbol != b.Symbol:
			return a.Symbol < b.Symbol
		case a.Message != b.Message:
			return a.Message < b.Message
		default:
			return a.Fingerprint() < b.Fingerprint()
		}
	})
}

// Merge returns the union of catalogs. Later catalogs win on identical keys.
func Merge(catalogs ...Catalog) Catalog {
	out := Catalog{}
	for _, c := range catalogs {
		for k, e := range c {
			out[k] = e
		}
	}
	return out
}

// Finding is one result reported by an analyzer.
type Finding struct {
	Kind string
	// Path as reported by the analyzer: absolute, relative to the project root, or a file:// URI.
	Path string
	// Line is 1-based; 0 marks a file-scoped finding.
	Line   int
	Symbol string
	// Template and Args describe the message before substitution. Message is used when Template is empty.
	Template string
	Args     []string
	Message  string
}

// Text returns the rendered message of the finding.
func (f Finding) Text() string {
	if f.Template != "" {
		return RenderMessage(f.Template, f.Args)
	}
	return f.Message
}

// Filter decides whether an analyzer should report a finding.
type Filter interface {
	Keep(f Finding) bool
}
