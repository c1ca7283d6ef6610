// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/modinstall/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/modinstall/config.cue on macOS, %APPDATA%\modinstall\config.cue
// on Windows), falling back to a modinstall.cue in the working directory. Every key can be
// overridden from the environment with the MODINSTALL_ prefix, dots replaced by underscores
// (MODINSTALL_LAUNCHER_COMMAND_NAME=az).
//
// The file is validated against an embedded CUE schema (config_schema.cue) before it is
// merged over the defaults.
package config
