package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixtureSource = `def function_redefined():
    return 1

def function_redefined():
    return 1

def code_duplication():
    msg_id_count = {}

    def _entry_sort_key(e: Entry):
        frequency = -msg_id_count[e.msg_id]
        return frequency, e.msg_id

    return sorted(entries, key=_entry_sort_key)
`

const (
	testAuthor = "Jane Doe <jane@example.com>"
	testDate   = "2020-07-17T09:59:24"
)

// newProject writes files under a fresh root and returns a workspace over it.
func newProject(t *testing.T, files map[string]string) (string, *Workspace) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
	ws, err := NewWorkspace(root, DefaultWorkspaceOptions())
	require.NoError(t, err)
	return root, ws
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// lineEntry builds an entry with context captured from the workspace.
func lineEntry(t *testing.T, ws *Workspace, rel string, line int, kind, symbol, message string) Entry {
	t.Helper()
	w, err := ws.Window(rel, line, line)
	require.NoError(t, err)
	return Entry{
		Kind:    kind,
		Path:    rel,
		Symbol:  symbol,
		Message: message,
		Author:  testAuthor,
		Date:    testDate,
		Source:  &w,
	}
}

func catalogOf(entries ...Entry) Catalog {
	c := Catalog{}
	for _, e := range entries {
		c.Add(e)
	}
	return c
}
