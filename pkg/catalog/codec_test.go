package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(buf *bytes.Buffer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:        "test",
		Output:      buf,
		Level:       hclog.Trace,
		DisableTime: true,
	})
}

func decodeString(t *testing.T, text string, ws *Workspace, logger hclog.Logger) Catalog {
	t.Helper()
	c, err := Decode(strings.NewReader(text), ws, DecodeOptions{CatalogPath: "scanio-ignore.md", Logger: logger})
	require.NoError(t, err)
	return c
}

func TestEncodeFormat(t *testing.T) {
	_, ws := newProject(t, map[string]string{"fixture_1.py": fixtureSource})

	redefined := lineEntry(t, ws, "fixture_1.py", 4, "E0102", "function-redefined", "function already defined line 1")
	locals := lineEntry(t, ws, "fixture_1.py", 14, "R0914", "too-many-locals", "Too many local variables (16/15)")
	locals.Annotation = "because intentional"

	got, err := Encode(catalogOf(locals, redefined))
	require.NoError(t, err)

	want := Header +
		"## File: fixture_1.py\n" +
		"\n" +
		"### Line 4 - E0102 (function-redefined)\n" +
		"\n" +
		"- message: function already defined line 1\n" +
		"- author : Jane Doe <jane@example.com>\n" +
		"- date   : 2020-07-17T09:59:24\n" +
		"\n" +
		"```\n" +
		"  2:     return 1\n" +
		"  3:\n" +
		"> 4: def function_redefined():\n" +
		"  5:     return 1\n" +
		"  6:\n" +
		"```\n" +
		"\n" +
		"### Line 14 - R0914 (too-many-locals)\n" +
		"\n" +
		"- message: Too many local variables (16/15)\n" +
		"- author : Jane Doe <jane@example.com>\n" +
		"- date   : 2020-07-17T09:59:24\n" +
		"- ignored: because intentional\n" +
		"\n" +
		"```\n" +
		"   7: def code_duplication():\n" +
		"  ...\n" +
		"  12:         return frequency, e.msg_id\n" +
		"  13:\n" +
		"> 14:     return sorted(entries, key=_entry_sort_key)\n" +
		"```\n" +
		"\n"

	assert.Equal(t, want, string(got))
}

func TestEncodeIsStable(t *testing.T) {
	_, ws := newProject(t, map[string]string{
		"a.py":     fixtureSource,
		"pkg/b.py": fixtureSource,
	})
	c := catalogOf(
		lineEntry(t, ws, "pkg/b.py", 12, "W0612", "unused-variable", "Unused variable 'frequency'"),
		lineEntry(t, ws, "a.py", 4, "E0102", "function-redefined", "function already defined line 1"),
		lineEntry(t, ws, "a.py", 4, "C0116", "missing-docstring", "Missing function docstring"),
		lineEntry(t, ws, "a.py", 8, "W0612", "unused-variable", "Unused variable 'msg_id_count'"),
	)

	first, err := Encode(c)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Encode(Merge(c))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	text := string(first)
	assert.Less(t, strings.Index(text, "## File: a.py"), strings.Index(text, "## File: pkg/b.py"))
	assert.Less(t, strings.Index(text, "C0116"), strings.Index(text, "E0102"), "same line is ordered by kind")
	assert.Less(t, strings.Index(text, "### Line 4 - E0102"), strings.Index(text, "### Line 8 - W0612"))
}

func TestRoundTrip(t *testing.T) {
	_, ws := newProject(t, map[string]string{
		"a.py":     fixtureSource,
		"pkg/b.py": fixtureSource,
	})
	fileScoped := Entry{
		Kind:       "C0302",
		Path:       "pkg/b.py",
		Symbol:     "too-many-lines",
		Message:    "Too many lines in module (1200/1000)",
		Extra:      "Consider splitting the module.\n\n```python\nimport this\n```",
		Author:     testAuthor,
		Date:       testDate,
		Annotation: "generated code",
	}
	c := catalogOf(
		lineEntry(t, ws, "a.py", 1, "E0102", "function-redefined", "function already defined line 4"),
		lineEntry(t, ws, "a.py", 14, "R0914", "too-many-locals", "Too many local variables (16/15)"),
		lineEntry(t, ws, "pkg/b.py", 11, "W0612", "unused-variable", "Unused variable 'frequency'"),
		fileScoped,
	)

	encoded, err := Encode(c)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), "~~~\nConsider splitting the module.")

	decoded := decodeString(t, string(encoded), ws, nil)
	require.Len(t, decoded, len(c))
	for k, e := range c {
		got, ok := decoded[k]
		require.True(t, ok, "key for %s:%d not recovered", e.Path, e.Line())
		assert.True(t, e.Equal(got), "entry %s:%d differs after round trip", e.Path, e.Line())
	}
	assert.False(t, IsDirty(c, decoded))

	reencoded, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestTwoEntriesSameFile(t *testing.T) {
	var src strings.Builder
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&src, "value_%d = compute(%d)\n", i, i)
	}
	_, ws := newProject(t, map[string]string{"src/values.py": src.String()})

	c := catalogOf(
		lineEntry(t, ws, "src/values.py", 30, "W0104", "pointless-statement", "Statement seems to have no effect"),
		lineEntry(t, ws, "src/values.py", 10, "W0104", "pointless-statement", "Statement seems to have no effect"),
	)

	encoded, err := Encode(c)
	require.NoError(t, err)
	text := string(encoded)

	assert.Equal(t, 1, strings.Count(text, "## File: src/values.py"))
	line10 := strings.Index(text, "### Line 10 - W0104 (pointless-statement)")
	line30 := strings.Index(text, "### Line 30 - W0104 (pointless-statement)")
	require.NotEqual(t, -1, line10)
	require.NotEqual(t, -1, line30)
	assert.Less(t, line10, line30)

	decoded := decodeString(t, text, ws, nil)
	assert.Equal(t, keysOf(c), keysOf(decoded))
}

func keysOf(c Catalog) map[Key]bool {
	keys := map[Key]bool{}
	for k := range c {
		keys[k] = true
	}
	return keys
}

const relocatedCatalog = Header + `## File: a.py

### Line 7 - E0102 (function-redefined)

- message: function already defined line 1
- author : Jane Doe <jane@example.com>
- date   : 2020-07-17T09:59:24

` + "```" + `
  5:     return 1
  6:
> 7: def function_redefined():
  8:     return 1
  9:
` + "```" + `

`

func TestDecodeRelocatesMovedEntry(t *testing.T) {
	// fixtureSource has the recorded line at 4, three lines above its recorded position.
	_, ws := newProject(t, map[string]string{"a.py": fixtureSource})

	c := decodeString(t, relocatedCatalog, ws, nil)
	require.Len(t, c, 1)

	entries := c.Entries()
	e := entries[0]
	assert.Equal(t, 4, e.Line())
	assert.Equal(t, 7, e.RecordedLine())
	assert.Equal(t, "def function_redefined():", e.Source.TargetText())
	assert.Equal(t, testAuthor, e.Author)
	assert.Equal(t, testDate, e.Date)
	assert.Equal(t, "", e.Annotation)

	m := NewMerger(c, ws, MergerOptions{Author: "someone else", Date: "2030-01-01T00:00:00"}, nil)
	keep := m.Keep(Finding{
		Kind:    "E0102",
		Path:    "a.py",
		Line:    4,
		Symbol:  "function-redefined",
		Message: "function already defined line 1",
	})
	assert.False(t, keep, "relocated finding must be suppressed")

	recorded := m.Catalog().Entries()
	require.Len(t, recorded, 1)
	assert.Equal(t, testAuthor, recorded[0].Author)
	assert.Equal(t, testDate, recorded[0].Date)
	assert.True(t, IsDirty(c, m.Catalog()), "entry moved from line 7 to 4")
}

func TestDecodeDropsObsoleteEntry(t *testing.T) {
	changed := strings.ReplaceAll(fixtureSource, "def function_redefined():", "def renamed():")
	_, ws := newProject(t, map[string]string{"a.py": changed})

	var logs bytes.Buffer
	c := decodeString(t, relocatedCatalog, ws, bufferLogger(&logs))
	assert.Empty(t, c)
	assert.NotContains(t, logs.String(), "[ERROR]")
	assert.NotContains(t, logs.String(), "[WARN]")
	assert.Contains(t, logs.String(), "obsolete")

	m := NewMerger(c, ws, MergerOptions{Author: testAuthor, Date: testDate}, nil)
	keep := m.Keep(Finding{
		Kind:    "E0102",
		Path:    "a.py",
		Line:    4,
		Symbol:  "function-redefined",
		Message: "function already defined line 1",
	})
	assert.True(t, keep, "finding of a dropped entry is reported as new")
}

func TestDecodeDropsUnreadableSource(t *testing.T) {
	_, ws := newProject(t, map[string]string{})

	var logs bytes.Buffer
	c := decodeString(t, relocatedCatalog, ws, bufferLogger(&logs))
	assert.Empty(t, c)
	assert.Contains(t, logs.String(), "[WARN]")
	assert.NotContains(t, logs.String(), "[ERROR]")
}

func TestDecodeSkipsMalformedEntries(t *testing.T) {
	_, ws := newProject(t, map[string]string{"a.py": fixtureSource})
	fence := "```"

	tests := []struct {
		name    string
		entry   string
		errLine int
		errText string
	}{
		{
			name: "Missing author",
			entry: "### Line 4 - E0102 (function-redefined)\n\n- message: m\n- date   : d\n\n" +
				fence + "\n> 4: def function_redefined():\n" + fence + "\n",
			errText: "missing field",
		},
		{
			name:    "Missing source block",
			entry:   "### Line 4 - E0102 (function-redefined)\n\n- message: m\n- author : a\n- date   : d\n\n",
			errText: "missing source block",
		},
		{
			name: "No marked line",
			entry: "### Line 4 - E0102 (function-redefined)\n\n- message: m\n- author : a\n- date   : d\n\n" +
				fence + "\n  4: def function_redefined():\n" + fence + "\n",
			errText: "no marked line",
		},
	}

	valid := "### Line 2 - W0101 (unreachable)\n\n- message: Unreachable code\n- author : a\n- date   : d\n\n" +
		fence + "\n> 2:     return 1\n" + fence + "\n\n"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := Header + "## File: a.py\n\n" + tt.entry + "\n" + valid
			entryLine := strings.Count(Header, "\n") + 3

			var logs bytes.Buffer
			c := decodeString(t, text, ws, bufferLogger(&logs))

			require.Len(t, c, 1, "valid entry after a malformed one is still loaded")
			assert.Equal(t, "W0101", c.Entries()[0].Kind)
			assert.Contains(t, logs.String(), "[ERROR]")
			assert.Contains(t, logs.String(), fmt.Sprintf("line %d of scanio-ignore.md", entryLine))
			assert.Contains(t, logs.String(), tt.errText)
		})
	}
}

func TestDecodeEntryWithoutFileHeader(t *testing.T) {
	_, ws := newProject(t, map[string]string{"a.py": fixtureSource})
	text := "### Line 2 - W0101 (unreachable)\n\n- message: m\n- author : a\n- date   : d\n\n```\n> 2:     return 1\n```\n"

	var logs bytes.Buffer
	c := decodeString(t, text, ws, bufferLogger(&logs))
	assert.Empty(t, c)
	assert.Contains(t, logs.String(), "not preceded by a file header")
}

func TestDecodeUnterminatedFence(t *testing.T) {
	_, ws := newProject(t, map[string]string{"a.py": fixtureSource})
	text := "## File: a.py\n\n### Line 2 - W0101 (unreachable)\n\n- message: m\n- author : a\n- date   : d\n\n```\n> 2:     return 1\n"

	var logs bytes.Buffer
	c := decodeString(t, text, ws, bufferLogger(&logs))
	assert.Empty(t, c)
	assert.Contains(t, logs.String(), "unterminated")
}

func TestDecodeCRLF(t *testing.T) {
	_, ws := newProject(t, map[string]string{"a.py": fixtureSource})
	text := strings.ReplaceAll(relocatedCatalog, "\n", "\r\n")

	c := decodeString(t, text, ws, nil)
	require.Len(t, c, 1)
	assert.Equal(t, 4, c.Entries()[0].Line())
}

func TestDecodeAnnotation(t *testing.T) {
	_, ws := newProject(t, map[string]string{"a.py": fixtureSource})
	text := strings.Replace(relocatedCatalog, "- date   : 2020-07-17T09:59:24\n",
		"- date   : 2020-07-17T09:59:24\n - ignored: because intentional\n", 1)

	c := decodeString(t, text, ws, nil)
	require.Len(t, c, 1)
	assert.Equal(t, "because intentional", c.Entries()[0].Annotation)
}

func TestEncodeInvariants(t *testing.T) {
	_, ws := newProject(t, map[string]string{"a.py": fixtureSource})
	base := lineEntry(t, ws, "a.py", 4, "E0102", "function-redefined", "function already defined line 1")

	tests := []struct {
		name   string
		mutate func(e *Entry)
		reason string
	}{
		{name: "Empty path", mutate: func(e *Entry) { e.Path = "" }, reason: "path is empty"},
		{name: "Empty kind", mutate: func(e *Entry) { e.Kind = "" }, reason: "kind is empty"},
		{name: "Kind with whitespace", mutate: func(e *Entry) { e.Kind = "E 0102" }, reason: "kind contains whitespace"},
		{name: "Empty symbol", mutate: func(e *Entry) { e.Symbol = "" }, reason: "symbol is empty"},
		{name: "Multi-line message", mutate: func(e *Entry) { e.Message = "a\nb" }, reason: "message spans multiple lines"},
		{name: "Multi-line annotation", mutate: func(e *Entry) { e.Annotation = "a\r\nb" }, reason: "annotation spans multiple lines"},
		{
			name: "Target outside window",
			mutate: func(e *Entry) {
				w := *e.Source
				w.TargetLine = 40
				e.Source = &w
			},
			reason: "target line is outside the context window",
		},
		{
			name: "Header inside window",
			mutate: func(e *Entry) {
				w := *e.Source
				w.HeaderIdx = w.Start
				w.Header = "def x():"
				e.Source = &w
			},
			reason: "declaration header overlaps the context window",
		},
		{
			name: "Both fence styles in extra",
			mutate: func(e *Entry) {
				e.Source = nil
				e.Extra = "```\n~~~"
			},
			reason: "both fence styles",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base
			tt.mutate(&e)

			out, err := Encode(catalogOf(base, e))
			assert.Nil(t, out)

			var invErr *EncodeInvariantError
			require.True(t, errors.As(err, &invErr))
			assert.Contains(t, invErr.Reason, tt.reason)
		})
	}
}

func TestEncodeEmptyCatalog(t *testing.T) {
	out, err := Encode(Catalog{})
	require.NoError(t, err)
	assert.Equal(t, Header, string(out))
}
