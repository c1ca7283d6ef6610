// SPDX-License-Identifier: MPL-2.0

// Package verify checks an installation: the launcher must run and the
// completion script must register its handler for the command name.
//
// Completion scripts are sourced either by the host bash (native mode) or by
// the embedded mvdan/sh interpreter (virtual mode), which emulates the
// complete and compopt builtins it lacks.
package verify
