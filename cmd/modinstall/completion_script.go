// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/modinstall/modinstall/internal/completion"

	"github.com/spf13/cobra"
)

// newCompletionScriptCommand prints the bash completion script install would
// write for NAME, without touching the filesystem.
func newCompletionScriptCommand(app *App, rootFlags *rootFlagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "completion-script [NAME]",
		Short: "Print the bash completion script for the installed command",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.loadSession(cmd.Context(), rootFlags)
			if err != nil {
				return err
			}
			name := sess.cfg.Launcher.CommandName
			if len(args) == 1 {
				name = args[0]
			}

			gen := &completion.Generator{Handler: sess.cfg.Completion.Handler, Logger: sess.logger}
			script, err := gen.Generate(name)
			if err != nil {
				return usageError(err)
			}
			fmt.Fprint(app.stdout, script.Text)
			return nil
		},
	}
}
