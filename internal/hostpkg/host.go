// SPDX-License-Identifier: MPL-2.0

package hostpkg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modinstall/modinstall/pkg/platform"
)

// ErrIncompleteEnvironment is returned when the venv module exits cleanly but
// the environment has no interpreter.
var ErrIncompleteEnvironment = errors.New("environment is incomplete")

type (
	// Host is the narrow interface to the host package mechanism.
	Host interface {
		// Probe returns the existing environment at target, if it is complete.
		Probe(target string) (Environment, bool)
		// CreateEnvironment creates a new environment at target.
		CreateEnvironment(ctx context.Context, target string) (Environment, error)
		// BuildArtifact builds the package in pkgDir into outDir.
		BuildArtifact(ctx context.Context, env Environment, pkgDir, outDir string) error
		// InstallNamed installs distributions by name into env.
		InstallNamed(ctx context.Context, env Environment, names []string, hint SourceHint) error
	}

	// SourceHint tells the installer where artifacts come from.
	SourceHint struct {
		// FindLinks is a directory of locally built artifacts.
		FindLinks string
		// Constraints is an optional pip constraints file.
		Constraints string
		// IndexURL is the remote index. Empty means offline.
		IndexURL string
	}

	// Pip implements Host with venv, setuptools and pip.
	Pip struct {
		// Python is the host interpreter used to create environments.
		Python string
		Runner Runner
		Logger *slog.Logger
	}
)

// NewPip returns a Pip host. A nil runner means ExecRunner, a nil logger slog.Default().
func NewPip(python string, runner Runner, logger *slog.Logger) *Pip {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pip{Python: python, Runner: runner, Logger: logger}
}

// Probe implements Host.
func (p *Pip) Probe(target string) (Environment, bool) {
	return ProbeEnvironment(target)
}

// CreateEnvironment implements Host. The host interpreter is spawned on the
// host when running inside a Flatpak or Snap sandbox.
func (p *Pip) CreateEnvironment(ctx context.Context, target string) (Environment, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return Environment{}, fmt.Errorf("resolve environment path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Environment{}, fmt.Errorf("create environment parent: %w", err)
	}

	name, args := platform.HostCommand(p.Python, []string{"-m", "venv", abs})
	p.Logger.Debug("creating environment", "path", abs, "python", p.Python)
	if _, err := p.Runner.Run(ctx, Command{Name: name, Args: args}); err != nil {
		return Environment{}, err
	}

	env, ok := ProbeEnvironment(abs)
	if !ok {
		return Environment{}, fmt.Errorf("%s: %w", abs, ErrIncompleteEnvironment)
	}
	return env, nil
}

// BuildArtifact implements Host. Packages with a setup.py are built with
// setuptools' bdist_wheel, everything else with pip wheel.
func (p *Pip) BuildArtifact(ctx context.Context, env Environment, pkgDir, outDir string) error {
	var args []string
	if isFile(filepath.Join(pkgDir, "setup.py")) {
		args = []string{"setup.py", "--quiet", "bdist_wheel", "-d", outDir}
	} else {
		args = []string{"-m", "pip", "wheel", "--quiet", "--no-deps", "--disable-pip-version-check", "-w", outDir, pkgDir}
	}

	out, err := p.Runner.Run(ctx, Command{Dir: pkgDir, Name: env.Interpreter, Args: args})
	if err != nil {
		return err
	}
	p.Logger.Debug("build output", "package", pkgDir, "output", Tail(out, 5))
	return nil
}

// InstallNamed implements Host.
func (p *Pip) InstallNamed(ctx context.Context, env Environment, names []string, hint SourceHint) error {
	_, err := p.Runner.Run(ctx, Command{Name: env.Interpreter, Args: InstallArgs(names, hint)})
	return err
}

// InstallArgs builds the pip command line for InstallNamed.
func InstallArgs(names []string, hint SourceHint) []string {
	args := []string{"-m", "pip", "install", "--disable-pip-version-check", "--upgrade"}
	if hint.FindLinks != "" {
		args = append(args, "--find-links", hint.FindLinks)
	}
	if hint.IndexURL == "" {
		args = append(args, "--no-index")
	} else {
		args = append(args, "--index-url", hint.IndexURL)
	}
	if hint.Constraints != "" {
		args = append(args, "--constraint", hint.Constraints)
	}
	return append(args, names...)
}
