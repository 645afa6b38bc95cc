package sarif

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/scanio-ignore/pkg/catalog"
	"github.com/scan-io-git/scanio-ignore/pkg/shared/files"
)

// Mode selects what happens to suppressed results in the written report.
type Mode string

const (
	// ModeDrop removes suppressed results.
	ModeDrop Mode = "drop"
	// ModeMark keeps suppressed results and attaches a SARIF suppression to them.
	ModeMark Mode = "mark"

	suppressionKind      = "external"
	suppressionStatus    = "accepted"
	defaultJustification = "acknowledged in the scanio-ignore catalog"
)

// ParseMode validates a mode name.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeDrop, "":
		return ModeDrop, nil
	case ModeMark:
		return ModeMark, nil
	default:
		return "", fmt.Errorf("unsupported mode %q, expected %q or %q", value, ModeDrop, ModeMark)
	}
}

type Report struct {
	*sarif.Report
	logger hclog.Logger
}

type ToolMetadata struct {
	Name    string
	Version *string
}

// checker is implemented by filters that expose the catalog entry behind a decision.
type checker interface {
	Check(f catalog.Finding) (bool, catalog.Entry)
}

// ReadReport loads a SARIF report from inputPath.
func ReadReport(inputPath string, logger hclog.Logger) (*Report, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	sarifReport, err := sarif.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SARIF report %q: %w", inputPath, err)
	}
	if sarifReport.Version != string(sarif.Version210) {
		logger.Warn("unexpected SARIF version, results may be incomplete", "version", sarifReport.Version, "expected", sarif.Version210)
	}

	return &Report{
		Report: sarifReport,
		logger: logger,
	}, nil
}

// NewReport wraps an in-memory report.
func NewReport(report *sarif.Report, logger hclog.Logger) *Report {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Report{Report: report, logger: logger}
}

// ExtractToolNameAndVersion function extracts tool name and version from a sarif report
func (r Report) ExtractToolNameAndVersion() (*ToolMetadata, error) {
	if len(r.Runs) == 0 || r.Runs[0].Tool.Driver == nil {
		return nil, fmt.Errorf("report has no tool driver")
	}
	return &ToolMetadata{
		Name:    r.Runs[0].Tool.Driver.Name,
		Version: r.Runs[0].Tool.Driver.SemanticVersion,
	}, nil
}

// Findings converts every undecided result of the report. Results that already carry
// a suppression or have no rule are skipped.
func (r Report) Findings(ws *catalog.Workspace) []catalog.Finding {
	var findings []catalog.Finding
	for _, run := range r.Runs {
		rules := rulesByID(run)
		for _, result := range run.Results {
			f, ok := r.finding(run, rules, result, ws)
			if ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

func (r Report) finding(run *sarif.Run, rules map[string]*sarif.ReportingDescriptor, result *sarif.Result, ws *catalog.Workspace) (catalog.Finding, bool) {
	if result == nil || len(result.Suppressions) > 0 {
		return catalog.Finding{}, false
	}

	rule := resolveRule(run, rules, result)
	kind := resultRuleID(result, rule)
	if kind == "" {
		r.logger.Debug("skipping result without a rule id")
		return catalog.Finding{}, false
	}

	uri, line := ExtractLocationFromResult(result)
	if uri == "" {
		r.logger.Debug("skipping result without a physical location", "rule", kind)
		return catalog.Finding{}, false
	}

	template, args := ResultMessageTemplate(run, rule, result)
	path := uri
	if ws != nil {
		path = ws.URIPath(uri)
	}

	return catalog.Finding{
		Kind:     kind,
		Path:     path,
		Line:     line,
		Symbol:   DisplayRuleSymbol(rule, kind),
		Template: template,
		Args:     args,
	}, true
}

// Apply runs every result through filter. Suppressed results are removed in ModeDrop
// and annotated in ModeMark. Results that already carry a suppression are dropped in
// ModeDrop and left untouched in ModeMark. The surfaced findings are returned in report order.
func (r *Report) Apply(filter catalog.Filter, mode Mode, ws *catalog.Workspace) ([]catalog.Finding, error) {
	if mode != ModeDrop && mode != ModeMark {
		return nil, fmt.Errorf("unsupported mode %q", mode)
	}
	check, _ := filter.(checker)

	var surfaced []catalog.Finding
	for _, run := range r.Runs {
		rules := rulesByID(run)
		var kept []*sarif.Result

		for _, result := range run.Results {
			if result == nil {
				continue
			}
			if len(result.Suppressions) > 0 {
				if mode == ModeMark {
					kept = append(kept, result)
				}
				continue
			}

			f, ok := r.finding(run, rules, result, ws)
			if !ok {
				kept = append(kept, result)
				continue
			}

			suppressed, justification := decide(filter, check, f)
			if !suppressed {
				surfaced = append(surfaced, f)
				kept = append(kept, result)
				continue
			}

			r.logger.Debug("suppressing result", "rule", f.Kind, "path", f.Path, "line", f.Line)
			if mode == ModeMark {
				result.AddSuppression(sarif.NewSuppression(suppressionKind).
					WithStatus(suppressionStatus).
					WithJustifcation(justification))
				kept = append(kept, result)
			}
		}

		if kept == nil {
			kept = []*sarif.Result{}
		}
		run.Results = kept
	}
	return surfaced, nil
}

func decide(filter catalog.Filter, check checker, f catalog.Finding) (bool, string) {
	if check == nil {
		return !filter.Keep(f), defaultJustification
	}
	suppressed, entry := check.Check(f)
	justification := strings.TrimSpace(entry.Annotation)
	if justification == "" {
		justification = defaultJustification
	}
	return suppressed, justification
}

// Write pretty-prints the report to outputPath, replacing it atomically.
func (r Report) Write(outputPath string) error {
	var buf bytes.Buffer
	if err := r.PrettyWrite(&buf); err != nil {
		return fmt.Errorf("failed to encode SARIF report: %w", err)
	}
	buf.WriteString("\n")
	if err := files.WriteFileAtomic(outputPath, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write SARIF report %q: %w", outputPath, err)
	}
	return nil
}

// CollectSeverityInfo counts the remaining results per display severity.
func (r Report) CollectSeverityInfo() map[string]int {
	severityInfo := map[string]int{"total": 0}
	for _, run := range r.Runs {
		rules := rulesByID(run)
		for _, result := range run.Results {
			if result == nil || len(result.Suppressions) > 0 {
				continue
			}
			severity := displaySeverity(resultLevel(resolveRule(run, rules, result), result))
			if severity == "" {
				severity = "Unknown"
			}
			severityInfo[severity]++
			severityInfo["total"]++
		}
	}
	return severityInfo
}

func rulesByID(run *sarif.Run) map[string]*sarif.ReportingDescriptor {
	rulesMap := map[string]*sarif.ReportingDescriptor{}
	if run == nil || run.Tool.Driver == nil {
		return rulesMap
	}
	for _, rule := range run.Tool.Driver.Rules {
		if rule != nil {
			rulesMap[rule.ID] = rule
		}
	}
	return rulesMap
}

// resolveRule finds the driver rule of a result by ruleIndex first, then by id.
func resolveRule(run *sarif.Run, rules map[string]*sarif.ReportingDescriptor, result *sarif.Result) *sarif.ReportingDescriptor {
	if run != nil && run.Tool.Driver != nil {
		var index *uint
		if result.RuleIndex != nil {
			index = result.RuleIndex
		} else if result.Rule != nil && result.Rule.Index != nil {
			index = result.Rule.Index
		}
		if index != nil && *index < uint(len(run.Tool.Driver.Rules)) {
			if rule := run.Tool.Driver.Rules[*index]; rule != nil {
				return rule
			}
		}
	}
	if result.RuleID != nil {
		if rule, ok := rules[*result.RuleID]; ok {
			return rule
		}
	}
	if result.Rule != nil && result.Rule.Id != nil {
		if rule, ok := rules[*result.Rule.Id]; ok {
			return rule
		}
	}
	return nil
}

// resultRuleID returns the rule id with whitespace runs replaced by dashes.
func resultRuleID(result *sarif.Result, rule *sarif.ReportingDescriptor) string {
	id := ""
	switch {
	case result.RuleID != nil && strings.TrimSpace(*result.RuleID) != "":
		id = *result.RuleID
	case result.Rule != nil && result.Rule.Id != nil:
		id = *result.Rule.Id
	case rule != nil:
		id = rule.ID
	}
	return strings.Join(strings.Fields(id), "-")
}

// resultLevel picks the level from the result, then the rule's "problem.severity"
// property (codeql), then the rule default configuration.
func resultLevel(rule *sarif.ReportingDescriptor, result *sarif.Result) string {
	if result.Level != nil {
		return *result.Level
	}
	if rule == nil {
		return ""
	}
	if level := getStringProp(rule.Properties, "problem.severity"); level != "" {
		return level
	}
	if rule.DefaultConfiguration != nil {
		return rule.DefaultConfiguration.Level
	}
	return ""
}
