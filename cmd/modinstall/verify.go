// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/modinstall/modinstall/internal/completion"
	"github.com/modinstall/modinstall/internal/pipeline"
	"github.com/modinstall/modinstall/internal/verify"

	"github.com/spf13/cobra"
)

func newVerifyCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &installFlagValues{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an existing installation",
		Long: `Run the launcher with the probe argument and source the completion script
to confirm the handler is registered for the command.

Exits with code 16 when a check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context(), app, rootFlags, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.prefix, "prefix", "p", ".", "installation prefix")
	cmd.Flags().StringVar(&flags.binDir, "bin-dir", "", "directory holding the launcher")
	cmd.Flags().StringVar(&flags.completionDir, "completion-dir", "", "directory holding the completion script")
	cmd.Flags().StringVar(&flags.commandName, "command-name", "", "name of the installed command")

	return cmd
}

func runVerify(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *installFlagValues) error {
	sess, err := app.loadSession(ctx, rootFlags)
	if err != nil {
		return err
	}
	if flags.commandName != "" {
		sess.cfg.Launcher.CommandName = flags.commandName
	}
	name := sess.cfg.Launcher.CommandName
	if err := completion.ValidateCommandName(name); err != nil {
		return usageError(err)
	}

	paths, err := resolvePaths(sess.cfg, ".", flags.prefix, flags.binDir, flags.completionDir)
	if err != nil {
		return usageError(err)
	}

	harness := verify.NewHarness(sess.cfg.Verify.Shell, sess.cfg.Verify.ProbeArg, sess.logger)
	target := verify.Target{
		LauncherPath:   filepath.Join(paths.BinDir, name),
		CompletionPath: filepath.Join(paths.CompletionDir, name),
		CommandName:    name,
		Handler:        sess.cfg.Completion.Handler,
	}
	if err := harness.Verify(ctx, target); err != nil {
		return failure(&pipeline.PhaseError{Phase: pipeline.PhaseVerify, Err: err}, sess.verbose)
	}

	fmt.Fprintf(app.stdout, "%s %s verified (%s shell)\n", SuccessStyle.Render("✓"), CmdStyle.Render(name), harness.ResolvedMode())
	return nil
}
