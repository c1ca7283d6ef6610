// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/modinstall/modinstall/pkg/types"
)

type (
	// ExitError carries a process exit code out of a RunE handler. Phase
	// failures carry the phase's code, usage and config problems ExitUsage.
	ExitError struct {
		Code types.ExitCode
		Err  error
	}

	// exitCoder is implemented by errors that know their exit code, such as
	// pipeline.PhaseError.
	exitCoder interface {
		ExitCode() types.ExitCode
	}
)

// usageError wraps err with the usage exit code.
func usageError(err error) *ExitError {
	return &ExitError{Code: types.ExitUsage, Err: err}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error { return e.Err }

// exitCodeOf returns the process exit code for err: 0 for nil, the code of
// the outermost ExitError or exitCoder in the chain, and ExitUsage otherwise.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return int(exitErr.Code)
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return int(coder.ExitCode())
	}
	return int(types.ExitUsage)
}
