// SPDX-License-Identifier: MPL-2.0

// Package install installs the primary package and the command modules into
// an environment, preferring the artifacts staged by the build phase.
//
// Every staged artifact is pinned to its exact version through a constraints
// file written next to the artifacts, so a remote index (when configured) can
// only supply dependencies that were not built locally.
package install
