package sourcetext

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultRadius is the number of lines captured on each side of a target line.
const DefaultRadius = 2

// DefaultKeywords are first tokens that open an enclosing declaration.
var DefaultKeywords = []string{"def", "class", "func", "function", "fn", "module", "interface"}

// Window is a bounded slice of a file captured around a target line.
type Window struct {
	// TargetLine is the current 1-based line of the finding.
	TargetLine int
	// RecordedLine is the line the finding was persisted with. Equal to TargetLine for new findings.
	RecordedLine int
	// Text holds the window lines with their terminators.
	Text string
	// Start and End are 0-based indices, End exclusive.
	Start int
	End   int
	// HeaderIdx is the 0-based index of the enclosing declaration, -1 when none was captured.
	HeaderIdx int
	Header    string
}

// Lines splits the window text back into lines.
func (w Window) Lines() []string {
	return SplitLines(w.Text)
}

// TargetText returns the text of the target line without its terminator.
func (w Window) TargetText() string {
	lines := w.Lines()
	i := w.TargetLine - 1 - w.Start
	if i < 0 || i >= len(lines) {
		return ""
	}
	return strings.TrimRight(lines[i], "\r\n")
}

// HasHeader reports whether an enclosing declaration was captured.
func (w Window) HasHeader() bool {
	return w.HeaderIdx >= 0
}

// Adjacent reports whether the captured header sits right before the window.
func (w Window) Adjacent() bool {
	return w.HasHeader() && w.HeaderIdx == w.Start-1
}

// Extractor builds context windows.
type Extractor struct {
	index    *Index
	radius   int
	keywords map[string]struct{}
}

// NewExtractor returns an Extractor. A negative radius uses DefaultRadius and empty keywords use DefaultKeywords.
func NewExtractor(index *Index, radius int, keywords []string) *Extractor {
	if radius < 0 {
		radius = DefaultRadius
	}
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	kw := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		kw[k] = struct{}{}
	}
	return &Extractor{index: index, radius: radius, keywords: kw}
}

// Radius returns the number of context lines on each side of the target.
func (e *Extractor) Radius() int {
	return e.radius
}

// Extract captures the window around target in path. recorded is stored as the window's RecordedLine.
func (e *Extractor) Extract(path string, target, recorded int) (Window, error) {
	lines, err := e.index.Lines(path)
	if err != nil {
		return Window{}, err
	}
	if target < 1 || target > len(lines) {
		return Window{}, &ReadError{Path: path, Err: fmt.Errorf("line %d of %d: %w", target, len(lines), ErrLineOutOfRange)}
	}

	idx := target - 1
	start := max(0, idx-e.radius)
	end := min(len(lines), idx+e.radius+1)

	w := Window{
		TargetLine:   target,
		RecordedLine: recorded,
		Text:         strings.Join(lines[start:end], ""),
		Start:        start,
		End:          end,
		HeaderIdx:    -1,
	}

	targetIndent := indentation(lines[idx])
	for i := idx; i >= 0; i-- {
		line := lines[i]
		if strings.TrimSpace(line) == "" || indentation(line) >= targetIndent {
			continue
		}
		fields := strings.Fields(line)
		if _, ok := e.keywords[fields[0]]; !ok {
			continue
		}
		if i < start {
			w.HeaderIdx = i
			w.Header = strings.TrimRight(line, "\r\n")
		}
		break
	}
	return w, nil
}

// indentation counts leading whitespace. A blank line counts as fully indented.
func indentation(line string) int {
	return len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
}
