// SPDX-License-Identifier: MPL-2.0

// Package launcher writes the executable that runs the installed application
// inside its environment.
package launcher
