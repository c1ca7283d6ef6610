// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/modinstall/modinstall/internal/config"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `modinstall config` command tree.
func newConfigCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modinstall configuration",
		Long: `Manage modinstall configuration.

Configuration is read from the first of:
  - the file given with --config
  - the user config directory (config.cue)
      Linux:   $XDG_CONFIG_HOME/modinstall/config.cue
      macOS:   ~/Library/Application Support/modinstall/config.cue
      Windows: %APPDATA%\modinstall\config.cue
  - modinstall.cue in the working directory

Any key can be overridden with a MODINSTALL_ environment variable, for
example MODINSTALL_LAUNCHER_COMMAND_NAME=azdev.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showConfig(cmd.Context(), app, rootFlags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", dir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := app.loadSession(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(sess.cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, rootFlags *rootFlagValues) error {
	sess, err := app.loadSession(ctx, rootFlags)
	if err != nil {
		return err
	}
	cfg := sess.cfg
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if sess.configPath != "" {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Config file"), sess.configPath)
	} else {
		fmt.Fprintf(w, "%s: %s\n", CmdStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	section(w, "layout",
		"source_root", cfg.Layout.SourceRoot,
		"core_packages", strings.Join(cfg.Layout.CorePackages, ", "),
		"module_pattern", cfg.Layout.ModulePattern,
	)
	section(w, "environment",
		"prefix", cfg.Environment.Prefix,
		"python", cfg.Environment.Python,
	)
	section(w, "launcher",
		"bin_dir", cfg.Launcher.BinDir,
		"command_name", cfg.Launcher.CommandName,
		"entry_point", cfg.Launcher.EntryPoint,
	)
	section(w, "completion",
		"dir", cfg.Completion.Dir,
		"handler", cfg.Completion.Handler,
	)
	indexURL := cfg.Remote.IndexURL
	if cfg.Offline() {
		indexURL = "(offline)"
	}
	section(w, "remote", "index_url", indexURL)
	section(w, "verify",
		"enabled", fmt.Sprint(cfg.Verify.Enabled),
		"probe_arg", cfg.Verify.ProbeArg,
		"shell", cfg.Verify.Shell.String(),
	)
	section(w, "ui",
		"color_scheme", cfg.UI.ColorScheme.String(),
		"verbose", fmt.Sprint(cfg.UI.Verbose),
	)
	return nil
}

// section prints a config section from alternating key/value pairs.
func section(w io.Writer, name string, kv ...string) {
	fmt.Fprintf(w, "\n%s:\n", CmdStyle.Render(name))
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(w, "  %s: %s\n", kv[i], SuccessStyle.Render(kv[i+1]))
	}
}
