// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/modinstall/modinstall/internal/config"
	"github.com/modinstall/modinstall/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags shared by every subcommand.
type rootFlagValues struct {
	verbose    bool
	configPath string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "modinstall",
		Short: "Install a modular Python CLI into an isolated environment",
		Long: TitleStyle.Render("modinstall") + SubtitleStyle.Render(" - Install a modular Python CLI into an isolated environment") + `

modinstall builds the core packages and every command module of a source
tree, installs them into a dedicated environment, and writes a launcher
and a bash completion script for the resulting command.

` + SubtitleStyle.Render("Examples:") + `
  modinstall install --prefix /opt/az      Install from the current directory
  modinstall discover                     List the packages that would be built
  modinstall verify --prefix /opt/az       Re-check an existing installation
  modinstall history                      Show recent install runs`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modinstall/config.cue)")

	rootCmd.AddCommand(
		newInstallCommand(app, flags),
		newDiscoverCommand(app, flags),
		newVerifyCommand(app, flags),
		newCompletionScriptCommand(app, flags),
		newHistoryCommand(app, flags),
		newConfigCommand(app, flags),
	)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code of the failed phase, if any.
// This is called by main.main().
func Execute() {
	os.Exit(run(context.Background(), NewApp(Dependencies{})))
}

// run executes the root command and returns the process exit code.
func run(ctx context.Context, app *App) int {
	err := fang.Execute(
		ctx,
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(renderError),
	)
	return exitCodeOf(err)
}

// renderError prints err. ServiceErrors carry their own styled text and
// issue help; everything else goes through fang's default handler.
func renderError(w io.Writer, styles fang.Styles, err error) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, config.ColorSchemeAuto)
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(false))
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
