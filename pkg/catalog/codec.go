package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-ignore/pkg/sourcetext"
)

// Header is written at the top of every catalog file.
const Header = "# Catalog file for `scanio-ignore`\n" +
	"\n" +
	"This file is read by `scanio-ignore` to decide which findings of a SARIF report are ignored.\n" +
	"\n" +
	"The recommended approach to using `scanio-ignore` is:\n" +
	"\n" +
	"- If a finding is valid, update your code rather than ignoring the finding.\n" +
	"- If a rule should always be ignored, disable it in the analyzer configuration\n" +
	"  rather than in this file.\n" +
	"- If a finding should be ignored, write a short comment why it is ok\n" +
	"  in its `ignored` field.\n" +
	"- If a finding should be reported again, set `ignored: no` or remove the section.\n" +
	"\n"

const (
	backtickFence = "```"
	tildeFence    = "~~~"
	ellipsis      = "  ..."
)

var (
	fileHeaderRe  = regexp.MustCompile(`^## File: (.+)$`)
	entryHeaderRe = regexp.MustCompile(`^### Line (\d+) - (\S+) \((.+)\)$`)
	listItemRe    = regexp.MustCompile(`^\s*-\s(message|author|date|ignored)\s*:\s(.*)$`)
	markedLineRe  = regexp.MustCompile(`^>\s*(\d+):(.*)$`)
)

// Encode renders the catalog. Entries are grouped by path and ordered by line, so
// equal catalogs always produce identical bytes. No output is produced when any
// entry violates the format.
func Encode(c Catalog) ([]byte, error) {
	entries := c.Entries()
	for _, e := range entries {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString(Header)

	currentPath := ""
	for i, e := range entries {
		if i == 0 || e.Path != currentPath {
			currentPath = e.Path
			fmt.Fprintf(&buf, "## File: %s\n\n", e.Path)
		}
		writeEntry(&buf, e)
	}
	return buf.Bytes(), nil
}

func writeEntry(buf *bytes.Buffer, e Entry) {
	fmt.Fprintf(buf, "### Line %d - %s (%s)\n\n", e.Line(), e.Kind, e.Symbol)
	fmt.Fprintf(buf, "- message: %s\n", e.Message)
	fmt.Fprintf(buf, "- author : %s\n", e.Author)
	fmt.Fprintf(buf, "- date   : %s\n", e.Date)
	if e.Annotation != "" {
		fmt.Fprintf(buf, "- ignored: %s\n", e.Annotation)
	}
	buf.WriteString("\n")

	if e.Source == nil {
		fence := fenceFor(e.Extra)
		buf.WriteString(fence + "\n")
		if e.Extra != "" {
			buf.WriteString(e.Extra + "\n")
		}
		buf.WriteString(fence + "\n\n")
		return
	}

	buf.WriteString(backtickFence + "\n")
	writeContext(buf, e.Source)
	buf.WriteString(backtickFence + "\n\n")
}

// writeContext renders numbered window lines. The target line is marked with ">".
func writeContext(buf *bytes.Buffer, w *sourcetext.Window) {
	width := len(strconv.Itoa(w.End))

	if w.HasHeader() {
		fmt.Fprintf(buf, "  %*d: %s\n", width, w.HeaderIdx+1, strings.TrimRightFunc(w.Header, unicode.IsSpace))
		if !w.Adjacent() {
			buf.WriteString(ellipsis + "\n")
		}
	}

	for i, line := range w.Lines() {
		lineNo := w.Start + i + 1
		marker := "  "
		if lineNo == w.TargetLine {
			marker = "> "
		}
		text := strings.TrimRightFunc(line, unicode.IsSpace)
		if text != "" {
			text = " " + text
		}
		fmt.Fprintf(buf, "%s%*d:%s\n", marker, width, lineNo, text)
	}
}

// fenceFor picks a fence that does not clash with the fenced text.
func fenceFor(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), backtickFence) {
			return tildeFence
		}
	}
	return backtickFence
}

func validateEntry(e Entry) error {
	fail := func(reason string) error {
		return &EncodeInvariantError{Path: e.Path, Kind: e.Kind, Line: e.Line(), Reason: reason}
	}

	switch {
	case e.Path == "":
		return fail("path is empty")
	case e.Path != strings.TrimSpace(e.Path):
		return fail("path has surrounding whitespace")
	case e.Kind == "":
		return fail("kind is empty")
	case strings.IndexFunc(e.Kind, unicode.IsSpace) >= 0:
		return fail("kind contains whitespace")
	case e.Symbol == "":
		return fail("symbol is empty")
	}

	singleLine := map[string]string{
		"path":       e.Path,
		"symbol":     e.Symbol,
		"message":    e.Message,
		"author":     e.Author,
		"date":       e.Date,
		"annotation": e.Annotation,
	}
	for name, value := range singleLine {
		if strings.ContainsAny(value, "\r\n") {
			return fail(name + " spans multiple lines")
		}
	}

	if e.Source == nil {
		if fenceFor(e.Extra) == tildeFence && strings.Contains(e.Extra, tildeFence) {
			return fail("extra text contains both fence styles")
		}
		return nil
	}

	w := e.Source
	switch {
	case w.TargetLine < 1:
		return fail("context has no target line")
	case w.Start < 0 || w.End <= w.Start:
		return fail("context window is empty")
	case w.TargetLine-1 < w.Start || w.TargetLine-1 >= w.End:
		return fail("target line is outside the context window")
	case len(w.Lines()) != w.End-w.Start:
		return fail("context text does not match the window bounds")
	case w.HasHeader() && w.HeaderIdx >= w.Start:
		return fail("declaration header overlaps the context window")
	case w.HasHeader() && strings.TrimSpace(w.Header) == "":
		return fail("declaration header is blank")
	}
	return nil
}

// DecodeOptions configures Decode.
type DecodeOptions struct {
	// CatalogPath is used in error messages only.
	CatalogPath string
	Logger      hclog.Logger
}

type rawEntry struct {
	catalogLine int
	path        string
	line        string
	kind        string
	symbol      string
	fields      map[string]string
	fenced      []string
	hasFence    bool
	err         error
}

// Decode reads a catalog. Every entry is relocated against the current sources of ws:
// entries whose anchor line is gone or whose source cannot be read are dropped and
// malformed entries are logged and skipped. Only read failures of r are returned.
func Decode(r io.Reader, ws *Workspace, opts DecodeOptions) (Catalog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	c := Catalog{}
	var pending *rawEntry
	currentPath := ""

	flush := func() {
		if pending == nil {
			return
		}
		raw := pending
		pending = nil

		e, err := buildEntry(raw, ws)
		var readErr *sourcetext.ReadError
		switch {
		case err == nil:
			c.Add(e)
		case errors.Is(err, sourcetext.ErrNotFound):
			logger.Debug("dropping obsolete catalog entry", "path", raw.path, "line", raw.line, "kind", raw.kind)
		case errors.As(err, &readErr):
			logger.Warn("dropping catalog entry with unreadable source", "path", raw.path, "line", raw.line, "error", err)
		default:
			perr := &ParseError{CatalogPath: opts.CatalogPath, Line: raw.catalogLine, Err: err}
			logger.Error("failed to parse catalog entry", "error", perr)
		}
	}

	// Context lines carry full source lines, so lines are read without a length cap.
	reader := bufio.NewReader(r)
	lineNo := 0
	var ioErr error
	next := func() (string, bool) {
		if ioErr != nil {
			return "", false
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			ioErr = err
			if line == "" {
				return "", false
			}
		}
		lineNo++
		return strings.TrimRight(strings.TrimSuffix(line, "\n"), "\r"), true
	}

	for {
		line, ok := next()
		if !ok {
			break
		}

		if strings.HasPrefix(line, backtickFence) || strings.HasPrefix(line, tildeFence) {
			fence := line[:3]
			var body []string
			closed := false
			for {
				inner, ok := next()
				if !ok {
					break
				}
				if strings.TrimSpace(inner) == fence {
					closed = true
					break
				}
				body = append(body, inner)
			}
			if pending == nil {
				continue
			}
			switch {
			case !closed:
				pending.err = fmt.Errorf("unterminated %s block", fence)
			case pending.hasFence:
				pending.err = fmt.Errorf("more than one source block")
			default:
				pending.fenced = body
				pending.hasFence = true
			}
			continue
		}

		if m := fileHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			currentPath = ws.Rel(m[1])
			continue
		}

		if m := entryHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			pending = &rawEntry{
				catalogLine: lineNo,
				path:        currentPath,
				line:        m[1],
				kind:        m[2],
				symbol:      m[3],
				fields:      map[string]string{},
			}
			continue
		}

		if m := listItemRe.FindStringSubmatch(line); m != nil && pending != nil {
			pending.fields[m[1]] = m[2]
		}
	}
	if ioErr != nil && !errors.Is(ioErr, io.EOF) {
		return nil, fmt.Errorf("failed to read catalog %s: %w", opts.CatalogPath, ioErr)
	}
	flush()

	return c, nil
}

func buildEntry(raw *rawEntry, ws *Workspace) (Entry, error) {
	if raw.err != nil {
		return Entry{}, raw.err
	}
	if raw.path == "" {
		return Entry{}, fmt.Errorf("entry is not preceded by a file header")
	}
	for _, field := range []string{"message", "author", "date"} {
		if _, ok := raw.fields[field]; !ok {
			return Entry{}, fmt.Errorf("missing field %q", field)
		}
	}
	recorded, err := strconv.Atoi(raw.line)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid line number %q: %w", raw.line, err)
	}

	e := Entry{
		Kind:       raw.kind,
		Path:       raw.path,
		Symbol:     raw.symbol,
		Message:    raw.fields["message"],
		Author:     raw.fields["author"],
		Date:       raw.fields["date"],
		Annotation: raw.fields["ignored"],
	}

	if recorded == 0 {
		e.Extra = strings.TrimSpace(strings.Join(raw.fenced, "\n"))
		return e, nil
	}

	if !raw.hasFence {
		return Entry{}, fmt.Errorf("missing source block")
	}
	targetText, ok := markedText(raw.fenced)
	if !ok {
		return Entry{}, fmt.Errorf("source block has no marked line")
	}

	current, err := ws.Relocate(raw.path, targetText, recorded)
	if err != nil {
		return Entry{}, err
	}
	w, err := ws.Window(raw.path, current, recorded)
	if err != nil {
		return Entry{}, err
	}
	e.Source = &w
	return e, nil
}

// markedText returns the text of the line marked with ">" in a source block.
func markedText(lines []string) (string, bool) {
	for _, line := range lines {
		if m := markedLineRe.FindStringSubmatch(line); m != nil {
			return strings.TrimPrefix(m[2], " "), true
		}
	}
	return "", false
}
