// SPDX-License-Identifier: MPL-2.0

// Package pipeline orchestrates an install run.
//
// A run moves through a fixed sequence of states:
//
//	Idle → Provisioning → Discovering → Building → Installing →
//	Synthesizing → CompletionGenerating → Verifying → Verified
//
// With verification disabled the run ends in Installed after the completion
// script is written. The first failing phase moves the run to Failed and is
// reported as a *PhaseError carrying the phase's exit code.
//
// Build artifacts live in a staging directory that exists only for the build
// and install phases. Runs against the same environment are serialized by an
// advisory lock on "<environment>.lock"; a second concurrent run fails in the
// provision phase instead of waiting.
package pipeline
