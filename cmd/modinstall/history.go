// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/modinstall/modinstall/internal/config"
	"github.com/modinstall/modinstall/internal/ledger"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newHistoryCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var (
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent install runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.Context(), app, rootFlags, limit, output)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, yaml)")

	return cmd
}

func runHistory(ctx context.Context, app *App, rootFlags *rootFlagValues, limit int, output string) error {
	if output != outputText && output != outputYAML {
		return usageError(fmt.Errorf("unknown output format %q (valid: text, yaml)", output))
	}
	if limit <= 0 {
		return usageError(fmt.Errorf("--limit: %w", ledger.ErrInvalidLimit))
	}

	sess, err := app.loadSession(ctx, rootFlags)
	if err != nil {
		return err
	}
	dir, err := config.StateDir(sess.cfg)
	if err != nil {
		return err
	}

	store, err := ledger.Open(ctx, filepath.Join(dir, ledger.FileName))
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if output == outputYAML {
		return yaml.NewEncoder(app.stdout).Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("No install runs recorded yet."))
		return nil
	}

	t := table.New().
		Headers("STARTED", "COMMAND", "PACKAGES", "STATE", "DURATION", "ENVIRONMENT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 3 && row < len(entries) && entries[row].State == "Failed" {
				return tableCellStyle.Foreground(ColorError)
			}
			return tableCellStyle
		})
	for _, e := range entries {
		state := e.State
		if e.Phase != "" {
			state += " (" + e.Phase + ")"
		}
		t.Row(
			e.StartedAt.Local().Format(time.DateTime),
			e.CommandName,
			fmt.Sprint(e.Packages),
			state,
			e.Duration.Round(time.Millisecond).String(),
			e.EnvRoot,
		)
	}
	fmt.Fprintln(app.stdout, t.Render())
	return nil
}
