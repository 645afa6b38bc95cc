package sarif

import (
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

// ExtractLocationFromResult returns the artifact URI and start line of the first
// physical location of a result. The line is 0 when the location has no region,
// which marks a file-scoped finding. Results without locations fall back to the
// analysis target.
func ExtractLocationFromResult(res *sarif.Result) (string, int) {
	if res == nil {
		return "", 0
	}

	for _, loc := range res.Locations {
		if loc == nil || loc.PhysicalLocation == nil {
			continue
		}
		uri := artifactURI(loc.PhysicalLocation.ArtifactLocation)
		if uri == "" {
			continue
		}
		return uri, ExtractStartLine(loc.PhysicalLocation.Region)
	}

	return artifactURI(res.AnalysisTarget), 0
}

// ExtractStartLine returns the 1-based start line of a region, or 0.
func ExtractStartLine(region *sarif.Region) int {
	if region == nil || region.StartLine == nil || *region.StartLine < 1 {
		return 0
	}
	return *region.StartLine
}

func artifactURI(art *sarif.ArtifactLocation) string {
	if art == nil || art.URI == nil {
		return ""
	}
	return strings.TrimSpace(*art.URI)
}

// DisplayRuleSymbol returns the human-friendly symbol of a rule:
// 1. rule.Name when available.
// 2. rule.ShortDescription.Text when available.
// 3. the rule id as a fallback.
// Whitespace runs are collapsed so the symbol always fits on one line.
func DisplayRuleSymbol(rule *sarif.ReportingDescriptor, ruleID string) string {
	if rule != nil {
		if rule.Name != nil {
			if symbol := singleLine(*rule.Name); symbol != "" {
				return symbol
			}
		}
		if rule.ShortDescription != nil && rule.ShortDescription.Text != nil {
			if symbol := singleLine(*rule.ShortDescription.Text); symbol != "" {
				return symbol
			}
		}
		if symbol := singleLine(rule.ID); symbol != "" {
			return symbol
		}
	}
	return singleLine(ruleID)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
