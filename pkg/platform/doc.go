// SPDX-License-Identifier: MPL-2.0

// Package platform holds OS name constants, Windows file name rules and
// sandbox-aware host command spawning.
package platform
