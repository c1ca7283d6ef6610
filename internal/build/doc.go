// SPDX-License-Identifier: MPL-2.0

// Package build turns package directories into distributable artifacts in a
// staging directory.
package build
