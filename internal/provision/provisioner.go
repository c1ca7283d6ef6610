// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/modinstall/modinstall/internal/hostpkg"
	"github.com/modinstall/modinstall/pkg/fspath"
)

var (
	// ErrEnvironmentCreation is the sentinel wrapped by EnvironmentCreationError.
	ErrEnvironmentCreation = errors.New("environment creation failed")
	// ErrTargetNotWritable is returned when the parent of the environment
	// cannot be created or does not accept new files.
	ErrTargetNotWritable = errors.New("environment parent directory is not writable")
)

type (
	// Provisioner creates or reuses the environment at a target path.
	Provisioner struct {
		host   hostpkg.Host
		logger *slog.Logger
	}

	// EnvironmentCreationError is returned when the environment cannot be created.
	EnvironmentCreationError struct {
		Target string
		// InterpreterMissing is set when the host interpreter could not be started.
		InterpreterMissing bool
		Err                error
	}
)

// New returns a Provisioner backed by host. A nil logger means slog.Default().
func New(host hostpkg.Host, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{host: host, logger: logger}
}

// Create returns the environment at target, creating it when it does not
// exist or is incomplete.
func (p *Provisioner) Create(ctx context.Context, target string) (hostpkg.Environment, error) {
	if err := ctx.Err(); err != nil {
		return hostpkg.Environment{}, &EnvironmentCreationError{Target: target, Err: err}
	}

	if env, ok := p.host.Probe(target); ok {
		p.logger.Info("reusing environment", "root", env.Root)
		return env, nil
	}

	// Fail before the host interpreter runs, whose error would be less clear.
	if parent := filepath.Dir(target); !fspath.IsWritableDir(parent) {
		return hostpkg.Environment{}, &EnvironmentCreationError{Target: target, Err: fmt.Errorf("%w: %s", ErrTargetNotWritable, parent)}
	}

	env, err := p.host.CreateEnvironment(ctx, target)
	if err != nil {
		cerr := &EnvironmentCreationError{Target: target, Err: err}
		var cmdErr *hostpkg.CommandError
		if errors.As(err, &cmdErr) && cmdErr.NotFound() {
			cerr.InterpreterMissing = true
		}
		return hostpkg.Environment{}, cerr
	}

	p.logger.Info("created environment", "root", env.Root, "interpreter", env.Interpreter)
	return env, nil
}

func (e *EnvironmentCreationError) Error() string {
	if e.InterpreterMissing {
		return fmt.Sprintf("create environment %s: host interpreter not found: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("create environment %s: %v", e.Target, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EnvironmentCreationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEnvironmentCreation.
func (e *EnvironmentCreationError) Is(target error) bool {
	return target == ErrEnvironmentCreation
}
