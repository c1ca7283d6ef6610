// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/modinstall/modinstall/internal/completion"
	"github.com/modinstall/modinstall/internal/pipeline"
	"github.com/modinstall/modinstall/internal/watch"

	"github.com/spf13/cobra"
)

// installFlagValues holds the flags of `modinstall install`.
type installFlagValues struct {
	source        string
	prefix        string
	binDir        string
	completionDir string
	commandName   string
	noVerify      bool
	watch         bool
}

// stateLabels are the progress lines printed as a run moves through its phases.
var stateLabels = map[pipeline.State]string{
	pipeline.StateProvisioning:         "Provisioning environment",
	pipeline.StateDiscovering:          "Discovering packages",
	pipeline.StateBuilding:             "Building packages",
	pipeline.StateInstalling:           "Installing packages",
	pipeline.StateSynthesizing:         "Writing launcher",
	pipeline.StateCompletionGenerating: "Writing completion script",
	pipeline.StateVerifying:            "Verifying installation",
}

func newInstallCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	flags := &installFlagValues{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Build and install the CLI and all of its command modules",
		Long: `Build every core package and command module of the source tree into a
staging directory, install them into the environment, then write the
launcher and the bash completion script.

Relative paths in the configuration are resolved against --prefix.

Exit codes:
  10  environment could not be created
  11  core packages are missing
  12  a package failed to build
  13  packages could not be installed
  14  the launcher could not be written
  15  the completion script could not be written
  16  verification failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd.Context(), app, rootFlags, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.source, "source", "s", ".", "source tree to install from")
	cmd.Flags().StringVarP(&flags.prefix, "prefix", "p", ".", "installation prefix")
	cmd.Flags().StringVar(&flags.binDir, "bin-dir", "", "directory for the launcher (default <prefix>/<launcher.bin_dir>)")
	cmd.Flags().StringVar(&flags.completionDir, "completion-dir", "", "directory for the completion script (default <prefix>/<completion.dir>)")
	cmd.Flags().StringVar(&flags.commandName, "command-name", "", "name of the installed command (default launcher.command_name)")
	cmd.Flags().BoolVar(&flags.noVerify, "no-verify", false, "skip the post-install checks")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "reinstall whenever the source tree changes")

	return cmd
}

func runInstall(ctx context.Context, app *App, rootFlags *rootFlagValues, flags *installFlagValues) error {
	sess, err := app.loadSession(ctx, rootFlags)
	if err != nil {
		return err
	}

	if flags.commandName != "" {
		sess.cfg.Launcher.CommandName = flags.commandName
	}
	if err := completion.ValidateCommandName(sess.cfg.Launcher.CommandName); err != nil {
		return usageError(err)
	}

	paths, err := resolvePaths(sess.cfg, flags.source, flags.prefix, flags.binDir, flags.completionDir)
	if err != nil {
		return usageError(err)
	}

	req := pipeline.Request{
		SourceDir:     paths.Source,
		EnvPath:       paths.Env,
		BinDir:        paths.BinDir,
		CompletionDir: paths.CompletionDir,
		Verify:        sess.cfg.Verify.Enabled && !flags.noVerify,
	}

	var recorder pipeline.Recorder
	if store := sess.openLedger(ctx); store != nil {
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				sess.logger.Warn("close run history", "error", closeErr)
			}
		}()
		recorder = store
	}

	var echo io.Writer
	if sess.verbose {
		echo = app.stderr
	}
	p := newPipeline(sess.cfg, sess.logger, echo, recorder,
		pipeline.WithTransitionHook(func(_, to pipeline.State) {
			if label, ok := stateLabels[to]; ok {
				fmt.Fprintf(app.stdout, "%s %s\n", CmdStyle.Render("→"), label)
			}
		}),
	)

	if !flags.watch {
		return installOnce(ctx, app, p, req, sess.verbose)
	}
	return watchAndInstall(ctx, app, sess, p, req, paths)
}

// installOnce runs the pipeline and prints a summary of the result.
func installOnce(ctx context.Context, app *App, p *pipeline.Pipeline, req pipeline.Request, verbose bool) error {
	res, err := p.Run(ctx, req)
	if err != nil {
		return failure(err, verbose)
	}
	printInstallSummary(app.stdout, res, req.Verify)
	return nil
}

func printInstallSummary(w io.Writer, res *pipeline.Result, verified bool) {
	fmt.Fprintf(w, "\n%s Installed %s (%d packages)\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(res.Launcher.CommandName), len(res.Artifacts))
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("environment:"), res.Environment.Root)
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("launcher:   "), res.Launcher.Path)
	fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("completion: "), res.CompletionPath)
	if verified {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("verified:   "), "yes")
	} else {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render("verified:   "), WarningStyle.Render("skipped"))
	}
}

// watchAndInstall installs once, then reinstalls on every change to the
// source tree until ctx is canceled. Failed runs are reported and the
// watch continues.
func watchAndInstall(ctx context.Context, app *App, sess *session, p *pipeline.Pipeline, req pipeline.Request, paths installPaths) error {
	report := func(err error) {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			renderServiceError(app.stderr, svcErr, sess.cfg.UI.ColorScheme)
			return
		}
		fmt.Fprintf(app.stderr, "%s %v\n", WarningStyle.Render("!"), err)
	}

	fmt.Fprintf(app.stdout, "%s Watch mode: initial install\n", CmdStyle.Render("→"))
	if err := installOnce(ctx, app, p, req, sess.verbose); err != nil {
		report(err)
	}

	w, err := watch.New(watch.Config{
		Root:   paths.Source,
		Ignore: outputIgnores(paths),
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(app.stdout, "\n%s Detected %d change(s), reinstalling\n", CmdStyle.Render("→"), len(changed))
			if err := installOnce(ctx, app, p, req, sess.verbose); err != nil {
				report(err)
			}
			return nil
		},
		Logger: sess.logger,
	})
	if err != nil {
		return usageError(fmt.Errorf("failed to start watcher: %w", err))
	}

	fmt.Fprintf(app.stdout, "\n%s Watching %s for changes (Ctrl+C to stop)\n", CmdStyle.Render("→"), paths.Source)
	return w.Run(ctx)
}

// outputIgnores returns ignore patterns for install outputs that live
// inside the source tree, so writing them does not trigger a rebuild.
func outputIgnores(paths installPaths) []string {
	var ignores []string
	for _, dir := range []string{paths.Env, paths.BinDir, paths.CompletionDir} {
		rel, err := filepath.Rel(paths.Source, dir)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		ignores = append(ignores, filepath.ToSlash(rel)+"/**")
	}
	return ignores
}
