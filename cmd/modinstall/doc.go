// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for modinstall.
//
// The root command wires configuration, logging and the install pipeline;
// subcommands install, preview, verify and inspect an installation.
package cmd
