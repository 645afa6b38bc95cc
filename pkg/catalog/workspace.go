package catalog

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/scan-io-git/scanio-ignore/pkg/shared/files"
	"github.com/scan-io-git/scanio-ignore/pkg/sourcetext"
)

// WorkspaceOptions configures source access for one run.
type WorkspaceOptions struct {
	ContextLines int
	SearchBound  int
	CacheSize    int
	Keywords     []string
}

// DefaultWorkspaceOptions returns the reference settings: two context lines,
// a search bound of 100 and three cached files.
func DefaultWorkspaceOptions() WorkspaceOptions {
	return WorkspaceOptions{
		ContextLines: sourcetext.DefaultRadius,
		SearchBound:  sourcetext.DefaultSearchBound,
		CacheSize:    sourcetext.DefaultCacheSize,
		Keywords:     sourcetext.DefaultKeywords,
	}
}

// Workspace resolves catalog paths against a project root and owns the source cache
// shared by relocation and context extraction.
type Workspace struct {
	root      string
	index     *sourcetext.Index
	relocator *sourcetext.Relocator
	extractor *sourcetext.Extractor
}

// NewWorkspace creates a Workspace rooted at root. An empty root uses the working directory.
func NewWorkspace(root string, opts WorkspaceOptions) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %q: %w", root, err)
	}

	index := sourcetext.NewIndex(opts.CacheSize)
	return &Workspace{
		root:      absRoot,
		index:     index,
		relocator: sourcetext.NewRelocator(index, opts.SearchBound),
		extractor: sourcetext.NewExtractor(index, opts.ContextLines, opts.Keywords),
	}, nil
}

// Root returns the absolute project root.
func (ws *Workspace) Root() string {
	return ws.root
}

// Rel converts an absolute path, a root-relative path or a file:// URI to a
// slash-separated path relative to the root. Paths outside the root stay absolute.
func (ws *Workspace) Rel(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	path = strings.TrimPrefix(path, "file://")
	clean := filepath.Clean(filepath.FromSlash(path))

	if filepath.IsAbs(clean) {
		inside, err := files.EnsureWithinRoot(ws.root, clean)
		if err != nil {
			return filepath.ToSlash(clean)
		}
		rel, err := filepath.Rel(ws.root, inside)
		if err != nil {
			return filepath.ToSlash(clean)
		}
		return filepath.ToSlash(rel)
	}
	return strings.TrimPrefix(filepath.ToSlash(clean), "./")
}

// URIPath converts a SARIF artifact URI to a catalog path. Percent-encoded
// characters are decoded for file URIs and relative references; other schemes
// are passed to Rel unchanged.
func (ws *Workspace) URIPath(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ws.Rel(uri)
	}

	switch u.Scheme {
	case "file":
		p := u.Path
		// file:///C:/src/a.py
		if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
			p = p[1:]
		}
		return ws.Rel(p)
	case "":
		return ws.Rel(u.Path)
	default:
		return ws.Rel(uri)
	}
}

// Abs returns the filesystem path of a catalog path.
func (ws *Workspace) Abs(rel string) string {
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) {
		return native
	}
	return filepath.Join(ws.root, native)
}

// Window extracts the context around line of rel. recorded is kept as the window's recorded line.
func (ws *Workspace) Window(rel string, line, recorded int) (sourcetext.Window, error) {
	return ws.extractor.Extract(ws.Abs(rel), line, recorded)
}

// Relocate finds the current line of text recorded at line in rel.
func (ws *Workspace) Relocate(rel, text string, line int) (int, error) {
	return ws.relocator.FindCurrentLine(ws.Abs(rel), text, line)
}
