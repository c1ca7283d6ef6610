// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"testing"

	"github.com/modinstall/modinstall/pkg/types"
)

func TestIsAllowedTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateProvisioning, true},
		{StateProvisioning, StateDiscovering, true},
		{StateDiscovering, StateBuilding, true},
		{StateBuilding, StateInstalling, true},
		{StateInstalling, StateSynthesizing, true},
		{StateSynthesizing, StateCompletionGenerating, true},
		{StateCompletionGenerating, StateVerifying, true},
		{StateCompletionGenerating, StateInstalled, true},
		{StateVerifying, StateVerified, true},
		{StateBuilding, StateFailed, true},
		{StateIdle, StateFailed, true},

		{StateIdle, StateBuilding, false},
		{StateBuilding, StateSynthesizing, false},
		{StateVerifying, StateInstalled, false},
		{StateVerified, StateFailed, false},
		{StateInstalled, StateVerifying, false},
		{StateFailed, StateFailed, false},
		{StateFailed, StateProvisioning, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			t.Parallel()
			if got := isAllowedTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("isAllowedTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()

	if got := StateCompletionGenerating.String(); got != "CompletionGenerating" {
		t.Errorf("String() = %q", got)
	}
	if got := State(99).String(); got != "State(99)" {
		t.Errorf("String() of unknown state = %q", got)
	}
}

func TestState_IsTerminal(t *testing.T) {
	t.Parallel()

	for s := StateIdle; s <= StateFailed; s++ {
		want := s == StateVerified || s == StateInstalled || s == StateFailed
		if got := s.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, want)
		}
	}
}

func TestPhase_ExitCode(t *testing.T) {
	t.Parallel()

	seen := map[types.ExitCode]Phase{}
	for _, p := range []Phase{PhaseProvision, PhaseDiscover, PhaseBuild, PhaseInstall, PhaseLauncher, PhaseCompletion, PhaseVerify} {
		code := p.ExitCode()
		if code < 10 || code > 16 {
			t.Errorf("%s.ExitCode() = %d, want 10..16", p, code)
		}
		if other, dup := seen[code]; dup {
			t.Errorf("%s and %s share exit code %d", p, other, code)
		}
		seen[code] = p
	}
	if got := Phase("bogus").ExitCode(); got != types.ExitUsage {
		t.Errorf("unknown phase exit code = %d, want %d", got, types.ExitUsage)
	}
}

func TestInvalidTransitionError(t *testing.T) {
	t.Parallel()

	err := error(&InvalidTransitionError{From: StateVerified, To: StateBuilding})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("should wrap ErrInvalidTransition")
	}
	if got := err.Error(); got != "invalid state transition Verified -> Building" {
		t.Errorf("Error() = %q", got)
	}
}
