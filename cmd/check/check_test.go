package check

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	gosarif "github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-ignore/internal/config"
	"github.com/scan-io-git/scanio-ignore/pkg/shared/errors"
)

const appSource = `import os
import sys


def main():
    print(sys.argv)
`

type testFinding struct {
	rule    string
	name    string
	line    int
	message string
}

var (
	unusedImport = testFinding{rule: "W0611", name: "unused-import", line: 1, message: "Unused import os"}
	noDocstring  = testFinding{rule: "C0116", name: "missing-function-docstring", line: 5, message: "Missing function or method docstring"}
	testNow      = time.Date(2020, 7, 17, 9, 59, 24, 0, time.Local)
)

type project struct {
	root    string
	catalog string
	sarif   string
}

func newProject(t *testing.T) *project {
	t.Helper()
	color.NoColor = true
	t.Setenv(config.EnvCatalogPath, "")
	t.Setenv(config.EnvAuthor, "")

	root := t.TempDir()
	p := &project{
		root:    root,
		catalog: filepath.Join(root, "scanio-ignore.md"),
		sarif:   filepath.Join(root, "report.sarif"),
	}
	p.writeSource(t, appSource)
	return p
}

func (p *project) writeSource(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.root, "app.py"), []byte(content), 0o644))
}

func (p *project) writeReport(t *testing.T, findings ...testFinding) {
	t.Helper()

	run := gosarif.NewRunWithInformationURI("pylint", "https://pylint.readthedocs.io")
	for _, f := range findings {
		name := f.name
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, &gosarif.ReportingDescriptor{ID: f.rule, Name: &name})

		rule, uri, message, line := f.rule, "app.py", f.message, f.line
		run.AddResult(&gosarif.Result{
			RuleID:  &rule,
			Message: gosarif.Message{Text: &message},
			Locations: []*gosarif.Location{
				{
					PhysicalLocation: &gosarif.PhysicalLocation{
						ArtifactLocation: &gosarif.ArtifactLocation{URI: &uri},
						Region:           &gosarif.Region{StartLine: &line},
					},
				},
			},
		})
	}

	report, err := gosarif.New(gosarif.Version210)
	require.NoError(t, err)
	report.AddRun(run)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p.sarif, data, 0o644))
}

func (p *project) options(update bool) *RunOptions {
	return &RunOptions{
		SarifPath:        p.sarif,
		IgnoreFile:       p.catalog,
		UpdateIgnoreFile: update,
		SourceFolder:     p.root,
		Mode:             "drop",
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Catalog.Author = "Jane Doe <jane@example.com>"
	require.NoError(t, config.ValidateConfig(cfg))
	return cfg
}

func run(t *testing.T, opts *RunOptions) (*Result, string, error) {
	t.Helper()
	var out bytes.Buffer
	result, err := executeCheck(opts, testConfig(t), hclog.NewNullLogger(), &out, testNow)
	return result, out.String(), err
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var cmdErr *errors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, code, cmdErr.ExitCode)
}

func TestCheckReportsNewFindings(t *testing.T) {
	p := newProject(t)
	p.writeReport(t, unusedImport, noDocstring)

	result, out, err := run(t, p.options(false))
	requireExitCode(t, err, errors.ExitFindings)

	require.NotNil(t, result)
	assert.Len(t, result.Surfaced, 2)
	assert.Equal(t, 2, result.Stats.Reported)
	assert.Contains(t, out, "app.py:1: W0611 (unused-import) Unused import os")
	assert.Contains(t, out, "app.py:5: C0116 (missing-function-docstring) Missing function or method docstring")
	assert.Contains(t, out, "FAIL: 2 unsuppressed findings")

	assert.NoFileExists(t, p.catalog, "check mode never writes the catalog")
}

func TestCheckUpdateThenCheck(t *testing.T) {
	p := newProject(t)
	p.writeReport(t, unusedImport, noDocstring)

	result, out, err := run(t, p.options(true))
	require.NoError(t, err)
	assert.True(t, result.CatalogWritten)
	assert.Equal(t, 2, result.Added)
	assert.Contains(t, out, "Catalog: 2 added, 0 retained, 0 obsolete")

	content, err := os.ReadFile(p.catalog)
	require.NoError(t, err)
	assert.Contains(t, string(content), "## File: app.py")
	assert.Contains(t, string(content), "### Line 1 - W0611 (unused-import)")
	assert.Contains(t, string(content), "- author : Jane Doe <jane@example.com>")
	assert.Contains(t, string(content), "- date   : 2020-07-17T09:59:24")

	result, out, err = run(t, p.options(false))
	require.NoError(t, err)
	assert.Empty(t, result.Surfaced)
	assert.Equal(t, 2, result.Stats.Suppressed)
	assert.Contains(t, out, "OK: no unsuppressed findings")
}

func TestCheckSurvivesLineDrift(t *testing.T) {
	p := newProject(t)
	p.writeReport(t, unusedImport, noDocstring)
	_, _, err := run(t, p.options(true))
	require.NoError(t, err)

	p.writeSource(t, "# module header\n\n"+appSource)
	shiftedImport, shiftedDocstring := unusedImport, noDocstring
	shiftedImport.line += 2
	shiftedDocstring.line += 2
	p.writeReport(t, shiftedImport, shiftedDocstring)

	result, _, err := run(t, p.options(false))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.Suppressed)
	assert.Equal(t, 2, result.Stats.Known)

	result, _, err = run(t, p.options(true))
	require.NoError(t, err)
	assert.True(t, result.CatalogWritten, "moved entries are rewritten with their current lines")
	assert.Equal(t, 2, result.Retained)

	content, err := os.ReadFile(p.catalog)
	require.NoError(t, err)
	assert.Contains(t, string(content), "### Line 3 - W0611 (unused-import)")
	assert.Contains(t, string(content), "### Line 7 - C0116 (missing-function-docstring)")

	info, err := os.Stat(p.catalog)
	require.NoError(t, err)
	result, _, err = run(t, p.options(true))
	require.NoError(t, err)
	assert.False(t, result.CatalogWritten, "an unchanged catalog is not rewritten")
	after, err := os.Stat(p.catalog)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
}

func TestCheckUpdateDropsObsoleteEntries(t *testing.T) {
	p := newProject(t)
	p.writeReport(t, unusedImport, noDocstring)
	_, _, err := run(t, p.options(true))
	require.NoError(t, err)

	p.writeReport(t, noDocstring)
	result, _, err := run(t, p.options(true))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Obsolete)
	assert.Equal(t, 1, result.Retained)

	content, err := os.ReadFile(p.catalog)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "W0611")
}

func TestCheckNegativeAnnotationReportsAgain(t *testing.T) {
	p := newProject(t)
	p.writeReport(t, unusedImport)
	_, _, err := run(t, p.options(true))
	require.NoError(t, err)

	content, err := os.ReadFile(p.catalog)
	require.NoError(t, err)
	annotated := strings.Replace(string(content), "- date   : 2020-07-17T09:59:24\n", "- date   : 2020-07-17T09:59:24\n- ignored: no\n", 1)
	require.NoError(t, os.WriteFile(p.catalog, []byte(annotated), 0o644))

	result, _, err := run(t, p.options(false))
	requireExitCode(t, err, errors.ExitFindings)
	assert.Len(t, result.Surfaced, 1)
}

func TestCheckMarkModeWritesSuppressions(t *testing.T) {
	p := newProject(t)
	p.writeReport(t, unusedImport, noDocstring)
	_, _, err := run(t, p.options(true))
	require.NoError(t, err)

	opts := p.options(false)
	opts.Mode = "mark"
	opts.OutputPath = filepath.Join(p.root, "out", "filtered.sarif")
	_, _, err = run(t, opts)
	require.NoError(t, err)

	written, err := gosarif.Open(opts.OutputPath)
	require.NoError(t, err)
	require.Len(t, written.Runs[0].Results, 2)
	for _, result := range written.Runs[0].Results {
		require.Len(t, result.Suppressions, 1)
		assert.Equal(t, "external", result.Suppressions[0].Kind)
	}
}

func TestCheckFragmentDir(t *testing.T) {
	p := newProject(t)
	p.writeReport(t, unusedImport)

	opts := p.options(true)
	opts.FragmentDir = filepath.Join(p.root, "fragments")
	result, _, err := run(t, opts)
	require.NoError(t, err)

	require.NotEmpty(t, result.FragmentPath)
	assert.FileExists(t, result.FragmentPath)
	assert.Equal(t, opts.FragmentDir, filepath.Dir(result.FragmentPath))
	assert.NoFileExists(t, p.catalog)
}

func TestCheckMissingExplicitCatalog(t *testing.T) {
	p := newProject(t)
	p.writeReport(t, unusedImport)

	opts := p.options(false)
	opts.IgnoreFileSet = true
	_, _, err := run(t, opts)
	requireExitCode(t, err, errors.ExitUsage)

	opts.UpdateIgnoreFile = true
	_, _, err = run(t, opts)
	assert.NoError(t, err, "a missing catalog is created in update mode")
}

func TestValidateCheckArgs(t *testing.T) {
	p := newProject(t)
	p.writeReport(t)

	tests := []struct {
		name    string
		opts    RunOptions
		args    []string
		wantErr string
	}{
		{name: "Valid", opts: RunOptions{SarifPath: p.sarif, Mode: "drop"}},
		{name: "Missing sarif", opts: RunOptions{Mode: "drop"}, wantErr: "missing required flags: sarif"},
		{name: "Sarif does not exist", opts: RunOptions{SarifPath: filepath.Join(p.root, "missing.sarif")}, wantErr: "invalid 'sarif' path"},
		{name: "Unknown mode", opts: RunOptions{SarifPath: p.sarif, Mode: "erase"}, wantErr: "unsupported mode"},
		{name: "Fragment without update", opts: RunOptions{SarifPath: p.sarif, FragmentDir: p.root}, wantErr: "'fragment-dir' requires 'update-ignorefile'"},
		{name: "Positional arguments", opts: RunOptions{SarifPath: p.sarif}, args: []string{"extra"}, wantErr: "unexpected positional arguments: extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCheckArgs(&tt.opts, tt.args)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFormatSeverity(t *testing.T) {
	got := formatSeverity(map[string]int{"Low": 1, "High": 2, "Custom": 1, "Medium": 0, "total": 4})
	assert.Equal(t, "High: 2, Low: 1, Custom: 1", got)
	assert.Equal(t, "", formatSeverity(map[string]int{"total": 0}))
}
