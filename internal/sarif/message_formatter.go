package sarif

import (
	"regexp"

	"github.com/owenrumney/go-sarif/v2/sarif"
)

// Pattern to match [text](id) where id is a number, optionally followed by more ids: [flows](1),(2)
var locationReferenceRe = regexp.MustCompile(`\[([^\]]+)\]\(\d+\)(?:,\(\d+\))*`)

// ResultMessageTemplate returns the message template of a result and its arguments.
// The template is message.text, or the rule or global messageStrings entry named by
// message.id. Location references are reduced to their link text so the rendered
// message does not depend on location numbering.
func ResultMessageTemplate(run *sarif.Run, rule *sarif.ReportingDescriptor, result *sarif.Result) (string, []string) {
	template := ""
	msg := result.Message
	switch {
	case msg.Text != nil && *msg.Text != "":
		template = *msg.Text
	case msg.ID != nil:
		template = lookupMessageString(run, rule, *msg.ID)
	}
	if template == "" && msg.Markdown != nil {
		template = *msg.Markdown
	}

	var args []string
	for _, arg := range msg.Arguments {
		args = append(args, StripLocationReferences(arg))
	}
	return StripLocationReferences(template), args
}

func lookupMessageString(run *sarif.Run, rule *sarif.ReportingDescriptor, id string) string {
	if rule != nil && rule.MessageStrings != nil {
		if s, ok := (*rule.MessageStrings)[id]; ok && s.Text != nil {
			return *s.Text
		}
	}
	if run != nil && run.Tool.Driver != nil {
		if s, ok := run.Tool.Driver.GlobalMessageStrings[id]; ok && s != nil && s.Text != nil {
			return *s.Text
		}
	}
	return ""
}

// StripLocationReferences replaces "[text](1)" style references with "text".
// Example: "depends on a [user-provided value](1)." -> "depends on a user-provided value."
func StripLocationReferences(text string) string {
	return locationReferenceRe.ReplaceAllString(text, "$1")
}
