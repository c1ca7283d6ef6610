// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines error types that carry remediation steps, and a catalog of
// Markdown help entries (rendered with glamour) for every install phase failure.
package issue
