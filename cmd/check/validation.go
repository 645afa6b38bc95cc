package check

import (
	"fmt"
	"strings"

	"github.com/scan-io-git/scanio-ignore/internal/sarif"
	"github.com/scan-io-git/scanio-ignore/pkg/shared/files"
)

// validateCheckArgs validates the arguments provided to the check command.
func validateCheckArgs(options *RunOptions, args []string) error {
	var (
		missing []string
		issues  []string
	)

	if len(args) > 0 {
		issues = append(issues, fmt.Sprintf("unexpected positional arguments: %s", strings.Join(args, ", ")))
	}

	if strings.TrimSpace(options.SarifPath) == "" {
		missing = append(missing, "sarif")
	} else if err := files.ValidatePath(options.SarifPath); err != nil {
		issues = append(issues, fmt.Sprintf("invalid 'sarif' path: %v", err))
	}

	if _, err := sarif.ParseMode(options.Mode); err != nil {
		issues = append(issues, err.Error())
	}

	if options.FragmentDir != "" && !options.UpdateIgnoreFile {
		issues = append(issues, "'fragment-dir' requires 'update-ignorefile'")
	}

	if len(missing) > 0 {
		issues = append(issues, fmt.Sprintf("missing required flags: %s", strings.Join(missing, ", ")))
	}

	if len(issues) > 0 {
		return fmt.Errorf("%s", strings.Join(issues, "; "))
	}
	return nil
}
