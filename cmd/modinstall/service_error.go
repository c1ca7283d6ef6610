// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/modinstall/modinstall/internal/build"
	"github.com/modinstall/modinstall/internal/completion"
	"github.com/modinstall/modinstall/internal/config"
	"github.com/modinstall/modinstall/internal/discovery"
	"github.com/modinstall/modinstall/internal/install"
	"github.com/modinstall/modinstall/internal/issue"
	"github.com/modinstall/modinstall/internal/launcher"
	"github.com/modinstall/modinstall/internal/pipeline"
	"github.com/modinstall/modinstall/internal/provision"
	"github.com/modinstall/modinstall/internal/verify"
)

// ServiceError is an error that carries optional rendering information for
// the CLI layer. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the optional issue catalog ID for rendering help text.
	IssueID issue.Id
	// StyledMessage is the optional pre-rendered styled error text.
	StyledMessage string
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// renderServiceError prints the styled message and then the issue help.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, colorScheme config.ColorScheme) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(stderr, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(glamourStyle(colorScheme))
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}
}

// glamourStyle maps the configured color scheme to a glamour style name.
func glamourStyle(cs config.ColorScheme) string {
	switch cs {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	default:
		return "auto"
	}
}

// issueForError picks the catalog entry that explains err, or 0.
func issueForError(err error) issue.Id {
	var envErr *provision.EnvironmentCreationError
	switch {
	case errors.Is(err, pipeline.ErrEnvironmentLocked):
		return issue.EnvironmentLockedId
	case errors.As(err, &envErr) && envErr.InterpreterMissing:
		return issue.InterpreterNotFoundId
	case errors.Is(err, provision.ErrEnvironmentCreation):
		return issue.EnvironmentCreationFailedId
	case errors.Is(err, discovery.ErrCorePackagesMissing):
		return issue.CorePackagesMissingId
	case errors.Is(err, build.ErrBuild):
		return issue.PackageBuildFailedId
	case errors.Is(err, install.ErrArtifactNotFound):
		return issue.ArtifactNotFoundId
	case errors.Is(err, install.ErrDependencyConflict):
		return issue.DependencyConflictId
	case errors.Is(err, install.ErrInstall):
		return issue.PackageInstallFailedId
	case errors.Is(err, launcher.ErrLauncherWrite):
		return issue.LauncherWriteFailedId
	case errors.Is(err, completion.ErrCompletionWrite):
		return issue.CompletionWriteFailedId
	case errors.Is(err, verify.ErrVerification):
		return issue.VerificationFailedId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	default:
		return 0
	}
}
