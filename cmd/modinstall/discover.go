// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/modinstall/modinstall/internal/discovery"
	"github.com/modinstall/modinstall/internal/pipeline"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

func newDiscoverCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	var (
		source string
		output string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the packages an install would build, in build order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(cmd.Context(), app, rootFlags, source, output)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", ".", "source tree to scan")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format (text, yaml)")

	return cmd
}

func runDiscover(ctx context.Context, app *App, rootFlags *rootFlagValues, source, output string) error {
	if output != outputText && output != outputYAML {
		return usageError(fmt.Errorf("unknown output format %q (valid: text, yaml)", output))
	}

	sess, err := app.loadSession(ctx, rootFlags)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return usageError(err)
	}

	pkgs, err := discovery.New(sess.cfg.Layout, discovery.WithLogger(sess.logger)).Discover(ctx, abs)
	if err != nil {
		return failure(&pipeline.PhaseError{Phase: pipeline.PhaseDiscover, Err: err}, sess.verbose)
	}

	if output == outputYAML {
		enc := yaml.NewEncoder(app.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(pkgs); err != nil {
			return err
		}
		return enc.Close()
	}
	renderPackages(app.stdout, pkgs)
	return nil
}

// renderPackages prints pkgs as a numbered table.
func renderPackages(w io.Writer, pkgs []discovery.Package) {
	t := table.New().
		Headers("#", "ROLE", "NAME", "PATH").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for i, p := range pkgs {
		t.Row(fmt.Sprint(i+1), string(p.Role), p.Name, p.RelPath)
	}
	fmt.Fprintln(w, t.Render())
}
