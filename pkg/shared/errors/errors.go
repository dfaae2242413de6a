package errors

import (
	"errors"
)

// Process exit codes returned by the sine binary.
const (
	ExitSuccess     = 0
	ExitNewFindings = 1
	ExitFailure     = 2
)

// CommandError represents an error that occurred during command execution together with the exit code it maps to.
type CommandError struct {
	ExitCode int
	Err      error
}

// Error implements the error interface, returning the message of the wrapped error.
func (e *CommandError) Error() string {
	if e.Err == nil {
		return "command failed"
	}
	return e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError carrying err and the exit code.
func NewCommandError(err error, code int) *CommandError {
	return &CommandError{
		ExitCode: code,
		Err:      err,
	}
}

// ErrNewFindings is returned by commands that completed but found violations not covered by the baseline.
var ErrNewFindings = errors.New("new violations found")

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	if errors.Is(err, ErrNewFindings) {
		return ExitNewFindings
	}
	return ExitFailure
}
