// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/modinstall/modinstall/internal/completion"
	"github.com/modinstall/modinstall/internal/config"
	"github.com/modinstall/modinstall/internal/hostpkg"
)

const (
	// CheckLauncher names the launcher probe.
	CheckLauncher Check = "launcher"
	// CheckCompletion names the completion registration check.
	CheckCompletion Check = "completion"
)

// ErrVerification is the sentinel matched by every VerificationError.
var ErrVerification = errors.New("verification failed")

type (
	// Check identifies one verification step.
	Check string

	// Target describes an installation to verify.
	Target struct {
		LauncherPath   string
		CompletionPath string
		CommandName    string
		// Handler is the expected completion function. Empty means the default.
		Handler string
	}

	// Harness runs the checks.
	Harness struct {
		// Mode selects the shell used for the checks.
		Mode config.ShellMode
		// ProbeArg is passed to the launcher. Empty means "--version".
		ProbeArg string
		Logger   *slog.Logger
		// lookPath is exec.LookPath, replaceable in tests.
		lookPath func(string) (string, error)
	}

	// VerificationError is returned when a check fails.
	VerificationError struct {
		Check  Check
		Output string
		Err    error
	}
)

// NewHarness returns a Harness for mode.
func NewHarness(mode config.ShellMode, probeArg string, logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{Mode: mode, ProbeArg: probeArg, Logger: logger, lookPath: exec.LookPath}
}

// ResolvedMode returns native or virtual. Auto picks native when bash is on PATH.
func (h *Harness) ResolvedMode() config.ShellMode {
	if h.Mode != config.ShellAuto && h.Mode != "" {
		return h.Mode
	}
	lookPath := h.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("bash"); err == nil {
		return config.ShellNative
	}
	return config.ShellVirtual
}

// Verify runs the launcher probe and then the completion check.
func (h *Harness) Verify(ctx context.Context, t Target) error {
	mode := h.ResolvedMode()
	h.logger().Debug("verifying installation", "mode", mode, "launcher", t.LauncherPath)

	if err := h.ProbeLauncher(ctx, mode, t.LauncherPath); err != nil {
		return err
	}
	return h.CheckCompletion(ctx, mode, t)
}

// ProbeLauncher runs the launcher with the probe argument. It must exit 0
// and print something.
func (h *Harness) ProbeLauncher(ctx context.Context, mode config.ShellMode, launcherPath string) error {
	var (
		out string
		err error
	)
	if mode == config.ShellVirtual {
		out, err = runLauncherVirtual(ctx, launcherPath, h.probeArg())
	} else {
		out, err = hostpkg.ExecRunner{}.Run(ctx, hostpkg.Command{Name: launcherPath, Args: []string{h.probeArg()}})
	}
	if err != nil {
		return &VerificationError{Check: CheckLauncher, Output: hostpkg.Tail(out, 10), Err: err}
	}
	if strings.TrimSpace(out) == "" {
		return &VerificationError{Check: CheckLauncher, Err: fmt.Errorf("%s %s printed nothing", launcherPath, h.probeArg())}
	}
	h.logger().Info("launcher works", "output", firstLine(out))
	return nil
}

// CheckCompletion sources the completion script in a fresh shell and
// requires `complete -p <command>` to report the exact registration line.
func (h *Harness) CheckCompletion(ctx context.Context, mode config.ShellMode, t Target) error {
	handler := t.Handler
	if handler == "" {
		handler = completion.DefaultHandler
	}
	want := completion.RegistrationLine(handler, t.CommandName)

	if _, err := os.Stat(t.CompletionPath); err != nil {
		return &VerificationError{Check: CheckCompletion, Err: err}
	}

	var (
		out string
		err error
	)
	if mode == config.ShellVirtual {
		out, err = registrationVirtual(ctx, t.CompletionPath, t.CommandName)
	} else {
		out, err = hostpkg.ExecRunner{}.Run(ctx, hostpkg.Command{
			Name: "bash",
			Args: []string{"-c", registrationScript, "modinstall-verify", t.CompletionPath, t.CommandName},
		})
	}
	if err != nil {
		return &VerificationError{Check: CheckCompletion, Output: hostpkg.Tail(out, 10), Err: err}
	}

	got := strings.TrimSpace(out)
	if got != want {
		return &VerificationError{Check: CheckCompletion, Output: got, Err: fmt.Errorf("registration is %q, want %q", got, want)}
	}
	h.logger().Info("completion registered", "command", t.CommandName)
	return nil
}

func (h *Harness) probeArg() string {
	if h.ProbeArg == "" {
		return "--version"
	}
	return h.ProbeArg
}

func (h *Harness) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify %s: %v", e.Check, e.Err)
}

// Unwrap returns the underlying cause.
func (e *VerificationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrVerification.
func (e *VerificationError) Is(target error) bool { return target == ErrVerification }
