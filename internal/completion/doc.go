// SPDX-License-Identifier: MPL-2.0

// Package completion generates and installs the bash completion script of the
// installed command. The script defines an argcomplete-compatible handler
// function and registers it for the command name.
package completion
