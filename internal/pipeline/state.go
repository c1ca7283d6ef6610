// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"

	"github.com/modinstall/modinstall/pkg/types"
)

const (
	// StateIdle is the state of a run that has not started.
	StateIdle State = iota
	// StateProvisioning creates or reuses the environment.
	StateProvisioning
	// StateDiscovering lists the core and module packages.
	StateDiscovering
	// StateBuilding builds every package into the staging directory.
	StateBuilding
	// StateInstalling installs the staged artifacts into the environment.
	StateInstalling
	// StateSynthesizing writes the launcher.
	StateSynthesizing
	// StateCompletionGenerating writes the completion script.
	StateCompletionGenerating
	// StateVerifying probes the launcher and the completion registration.
	StateVerifying
	// StateVerified is the success state of a verified run.
	StateVerified
	// StateInstalled is the success state of a run without verification.
	StateInstalled
	// StateFailed is reached from any non-terminal state when a phase fails.
	StateFailed
)

// Phases name the unit of work a PhaseError reports. Each maps to its own
// process exit code.
const (
	// PhaseProvision covers the environment lock and environment creation.
	PhaseProvision Phase = "provision"
	// PhaseDiscover covers package discovery.
	PhaseDiscover Phase = "discover"
	// PhaseBuild covers the staging directory and every package build.
	PhaseBuild Phase = "build"
	// PhaseInstall covers the single install of all staged artifacts.
	PhaseInstall Phase = "install"
	// PhaseLauncher covers writing the launcher.
	PhaseLauncher Phase = "launcher"
	// PhaseCompletion covers rendering and writing the completion script.
	PhaseCompletion Phase = "completion"
	// PhaseVerify covers the post-install checks.
	PhaseVerify Phase = "verify"
)

// ErrInvalidTransition is returned for a state change the machine does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

var (
	stateNames = map[State]string{
		StateIdle:                 "Idle",
		StateProvisioning:         "Provisioning",
		StateDiscovering:          "Discovering",
		StateBuilding:             "Building",
		StateInstalling:           "Installing",
		StateSynthesizing:         "Synthesizing",
		StateCompletionGenerating: "CompletionGenerating",
		StateVerifying:            "Verifying",
		StateVerified:             "Verified",
		StateInstalled:            "Installed",
		StateFailed:               "Failed",
	}

	transitions = map[State][]State{
		StateIdle:                 {StateProvisioning},
		StateProvisioning:         {StateDiscovering},
		StateDiscovering:          {StateBuilding},
		StateBuilding:             {StateInstalling},
		StateInstalling:           {StateSynthesizing},
		StateSynthesizing:         {StateCompletionGenerating},
		StateCompletionGenerating: {StateVerifying, StateInstalled},
		StateVerifying:            {StateVerified},
	}

	phaseExitCodes = map[Phase]types.ExitCode{
		PhaseProvision:  10,
		PhaseDiscover:   11,
		PhaseBuild:      12,
		PhaseInstall:    13,
		PhaseLauncher:   14,
		PhaseCompletion: 15,
		PhaseVerify:     16,
	}
)

type (
	// State is a run state.
	State int

	// Phase names the unit of work that failed.
	Phase string

	// PhaseError is the failure of a run.
	PhaseError struct {
		Phase Phase
		Err   error
	}

	// InvalidTransitionError describes a rejected state change.
	InvalidTransitionError struct {
		From, To State
	}
)

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateVerified || s == StateInstalled || s == StateFailed
}

// isAllowedTransition reports whether from may move to to. Every
// non-terminal state may fail.
func isAllowedTransition(from, to State) bool {
	if to == StateFailed {
		return !from.IsTerminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ExitCode returns the process exit code of a failure in p.
func (p Phase) ExitCode() types.ExitCode {
	if code, ok := phaseExitCodes[p]; ok {
		return code
	}
	return types.ExitUsage
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PhaseError) Unwrap() error { return e.Err }

// ExitCode returns the exit code of the failed phase.
func (e *PhaseError) ExitCode() types.ExitCode { return e.Phase.ExitCode() }

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// Unwrap returns ErrInvalidTransition for errors.Is() compatibility.
func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
