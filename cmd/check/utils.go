package check

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/scan-io-git/scanio-ignore/pkg/catalog"
)

var (
	locationColor = color.New(color.Bold)
	kindColor     = color.New(color.FgYellow)
	failColor     = color.New(color.FgRed, color.Bold)
	okColor       = color.New(color.FgGreen, color.Bold)
)

// printFindings prints one line per surfaced finding.
func printFindings(out io.Writer, findings []catalog.Finding) {
	for _, f := range findings {
		location := f.Path
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", f.Path, f.Line)
		}
		message, _ := catalog.SplitMessage(f.Text())
		fmt.Fprintf(out, "%s: %s (%s) %s\n",
			locationColor.Sprint(location),
			kindColor.Sprint(f.Kind),
			f.Symbol,
			message,
		)
	}
}

// printSummary prints decision counters and the severity breakdown of surfaced results.
func printSummary(out io.Writer, result *Result, update bool) {
	stats := result.Stats
	fmt.Fprintf(out, "\nFindings: %d, suppressed: %d, reported: %d", stats.Findings, stats.Suppressed, stats.Reported)
	if stats.Unreadable > 0 {
		fmt.Fprintf(out, ", without source: %d", stats.Unreadable)
	}
	fmt.Fprintln(out)

	if severity := formatSeverity(result.Severity); severity != "" {
		fmt.Fprintf(out, "Remaining by severity: %s\n", severity)
	}

	if update {
		fmt.Fprintf(out, "Catalog: %d added, %d retained, %d obsolete", result.Added, result.Retained, result.Obsolete)
		switch {
		case result.FragmentPath != "":
			fmt.Fprintf(out, " (fragment %s)", result.FragmentPath)
		case result.CatalogWritten:
			fmt.Fprintf(out, " (written to %s)", result.CatalogPath)
		default:
			fmt.Fprint(out, " (unchanged)")
		}
		fmt.Fprintln(out)
	}

	if len(result.Surfaced) > 0 {
		failColor.Fprintf(out, "FAIL: %d unsuppressed findings\n", len(result.Surfaced))
		return
	}
	okColor.Fprintln(out, "OK: no unsuppressed findings")
}

// formatSeverity renders "High: 1, Medium: 2" ordered from the most severe label.
func formatSeverity(severity map[string]int) string {
	order := map[string]int{"High": 0, "Medium": 1, "Low": 2, "Info": 3}
	var labels []string
	for label, count := range severity {
		if label == "total" || count == 0 {
			continue
		}
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		oi, iok := order[labels[i]]
		oj, jok := order[labels[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return labels[i] < labels[j]
		}
	})

	out := ""
	for i, label := range labels {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %d", label, severity[label])
	}
	return out
}
