// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"

	"github.com/modinstall/modinstall/internal/build"
	"github.com/modinstall/modinstall/internal/completion"
	"github.com/modinstall/modinstall/internal/discovery"
	"github.com/modinstall/modinstall/internal/hostpkg"
	"github.com/modinstall/modinstall/internal/install"
	"github.com/modinstall/modinstall/internal/issue"
	"github.com/modinstall/modinstall/internal/launcher"
	"github.com/modinstall/modinstall/internal/pipeline"
	"github.com/modinstall/modinstall/internal/provision"
	"github.com/modinstall/modinstall/internal/verify"
	"github.com/modinstall/modinstall/pkg/types"
)

// phaseOperations are the operation phrases shown for a failed phase.
var phaseOperations = map[pipeline.Phase]string{
	pipeline.PhaseProvision:  "create environment",
	pipeline.PhaseDiscover:   "discover packages",
	pipeline.PhaseBuild:      "build package",
	pipeline.PhaseInstall:    "install packages",
	pipeline.PhaseLauncher:   "write launcher",
	pipeline.PhaseCompletion: "install completion script",
	pipeline.PhaseVerify:     "verify installation",
}

// failure converts a phase failure into an ExitError carrying the phase's
// exit code and its issue catalog entry.
func failure(err error, verbose bool) error {
	code := types.ExitUsage
	var perr *pipeline.PhaseError
	if errors.As(err, &perr) {
		code = perr.Phase.ExitCode()
	}
	styled := renderFailure(err, verbose)
	return &ExitError{Code: code, Err: newServiceError(err, issueForError(err), styled)}
}

// renderFailure formats err for the terminal. The phase, when known, is
// shown above the actionable error text.
func renderFailure(err error, verbose bool) string {
	msg := failureHeaderStyle.Render("Install failed") + "\n"
	var perr *pipeline.PhaseError
	if errors.As(err, &perr) {
		msg += failureLabelStyle.Render("Phase: ") + failureValueStyle.Render(string(perr.Phase)) + "\n"
		err = explainFailure(perr)
	}
	msg += failureLabelStyle.Render("Error: ") + formatErrorForDisplay(err, verbose) + "\n\n"
	return msg
}

// explainFailure describes a phase failure as an ActionableError: what was
// attempted, on which path or packages, and what to try next.
func explainFailure(perr *pipeline.PhaseError) *issue.ActionableError {
	op, ok := phaseOperations[perr.Phase]
	if !ok {
		op = string(perr.Phase)
	}
	ec := issue.NewErrorContext().WithOperation(op).Wrap(perr.Err)

	var (
		envErr    *provision.EnvironmentCreationError
		discErr   *discovery.DiscoveryError
		buildErr  *build.BuildError
		instErr   *install.InstallError
		launchErr *launcher.LauncherWriteError
		compErr   *completion.CompletionWriteError
		verifyErr *verify.VerificationError
	)
	switch {
	case errors.Is(perr.Err, pipeline.ErrEnvironmentLocked):
		ec.WithSuggestion("Wait for the other install into this prefix to finish, then retry")
	case errors.As(perr.Err, &envErr):
		ec.WithResource(envErr.Target)
		if envErr.InterpreterMissing {
			ec.WithSuggestions(
				"Install Python 3 or set environment.python to an interpreter on PATH",
				"Override it for one run with MODINSTALL_ENVIRONMENT_PYTHON",
			)
		} else {
			ec.WithSuggestion("Check that the prefix directory exists and is writable, or pass --prefix")
		}
	case errors.As(perr.Err, &discErr):
		ec.WithResource(discErr.Root).WithSuggestions(
			"Check that --source points at the repository root",
			"Compare layout.source_root and layout.core_packages with the tree ('modinstall config show')",
		)
	case errors.As(perr.Err, &buildErr):
		ec.WithResource(buildErr.Package.Dir)
		if last := lastLine(buildErr.Output); last != "" {
			ec.WithSuggestion("Build output ended with: " + last)
		}
		ec.WithSuggestion("Re-run with --verbose to see the full build output")
	case errors.As(perr.Err, &instErr):
		ec.WithResource(strings.Join(instErr.Names, ", "))
		switch instErr.Kind {
		case install.KindArtifactNotFound:
			ec.WithSuggestions(
				"Check that every listed package built an artifact",
				"Set remote.index_url to let pip fetch packages that were not built locally",
			)
		case install.KindDependencyConflict:
			ec.WithSuggestion("Align the version requirements of the listed packages")
		default:
			ec.WithSuggestion("Re-run with --verbose to see the pip output")
		}
	case errors.As(perr.Err, &launchErr):
		ec.WithResource(launchErr.Path).
			WithSuggestion("Check that the directory is writable, or choose another with --bin-dir")
	case errors.As(perr.Err, &compErr):
		ec.WithResource(compErr.Path).
			WithSuggestion("Check that the directory is writable, or choose another with --completion-dir")
	case errors.As(perr.Err, &verifyErr):
		ec.WithResource(string(verifyErr.Check))
		if last := lastLine(verifyErr.Output); last != "" {
			ec.WithSuggestion("Output ended with: " + last)
		}
		ec.WithSuggestion("Skip the checks with --no-verify once the cause is understood")
	}
	return ec.Build()
}

// lastLine returns the last non-blank line of output.
func lastLine(output string) string {
	return strings.TrimSpace(hostpkg.Tail(output, 1))
}
