package errors

import (
	"github.com/scan-io-git/scanio-ignore/pkg/shared"
)

const (
	// ExitFindings means the run finished but unsuppressed findings remain.
	ExitFindings = 1
	// ExitUsage covers invalid arguments and IO failures.
	ExitUsage = 2
)

// CommandError represents an error that occurred during command execution, storing relevant results.
type CommandError struct {
	ExitCode    int
	CommonError string
	Result      shared.GenericLaunchesResult
}

// Error implements the error interface, returning the message from the common error.
func (e *CommandError) Error() string {
	return e.CommonError
}

// NewCommandError creates a new CommandError instance, encapsulating args, result, and the error message.
func NewCommandError(args interface{}, result interface{}, err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Result: shared.GenericLaunchesResult{
			Launches: []shared.GenericResult{
				{
					Args:    args,
					Result:  result,
					Status:  "FAILED",
					Message: err.Error(),
				},
			},
		},
	}
}

// NewCommandErrorWithResult creates a new CommandError with a pre-formed GenericLaunchesResult.
func NewCommandErrorWithResult(launches shared.GenericLaunchesResult, err error, code int) *CommandError {
	return &CommandError{
		ExitCode:    code,
		CommonError: err.Error(),
		Result:      launches,
	}
}
