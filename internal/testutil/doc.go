// SPDX-License-Identifier: MPL-2.0

// Package testutil provides test helpers that fail the test on error.
//
// Besides the Must* filesystem and environment helpers it carries a
// POSIX sh stand-in for a Python interpreter (WriteFakePython) so install
// runs can be exercised end to end without a real toolchain, and a
// manually advanced clock.
package testutil
