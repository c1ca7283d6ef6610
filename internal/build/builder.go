// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modinstall/modinstall/internal/discovery"
	"github.com/modinstall/modinstall/internal/hostpkg"
)

// outputTailLines bounds the build output kept on a BuildError.
const outputTailLines = 20

var (
	// ErrBuild is the sentinel matched by every BuildError.
	ErrBuild = errors.New("package build failed")
	// ErrNoArtifact means the build tool succeeded but produced nothing.
	ErrNoArtifact = errors.New("build produced no artifact")
	// ErrAmbiguousArtifact means the build tool produced more than one artifact.
	ErrAmbiguousArtifact = errors.New("build produced more than one artifact")
)

type (
	// Builder builds packages with the host build tooling.
	Builder struct {
		host   hostpkg.Host
		logger *slog.Logger
	}

	// BuildError is returned when a package cannot be built.
	BuildError struct {
		Package discovery.Package
		// Output is the tail of the build tool output, if any.
		Output string
		Err    error
	}
)

// NewBuilder returns a Builder. A nil logger means slog.Default().
func NewBuilder(host hostpkg.Host, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{host: host, logger: logger}
}

// Build builds pkg into stagingDir. Exactly one new artifact must appear.
func (b *Builder) Build(ctx context.Context, env hostpkg.Environment, pkg discovery.Package, stagingDir string) (Artifact, error) {
	before, err := Scan(stagingDir)
	if err != nil {
		return Artifact{}, &BuildError{Package: pkg, Err: err}
	}

	start := time.Now()
	if err := b.host.BuildArtifact(ctx, env, pkg.Dir, stagingDir); err != nil {
		berr := &BuildError{Package: pkg, Err: err}
		var cmdErr *hostpkg.CommandError
		if errors.As(err, &cmdErr) {
			berr.Output = cmdErr.Tail(outputTailLines)
		}
		return Artifact{}, berr
	}

	after, err := Scan(stagingDir)
	if err != nil {
		return Artifact{}, &BuildError{Package: pkg, Err: err}
	}

	seen := make(map[string]bool, len(before))
	for _, a := range before {
		seen[a.Path] = true
	}
	var fresh []Artifact
	for _, a := range after {
		if !seen[a.Path] {
			fresh = append(fresh, a)
		}
	}

	switch len(fresh) {
	case 0:
		return Artifact{}, &BuildError{Package: pkg, Err: ErrNoArtifact}
	case 1:
	default:
		return Artifact{}, &BuildError{Package: pkg, Err: fmt.Errorf("%w: %d files", ErrAmbiguousArtifact, len(fresh))}
	}

	art := fresh[0]
	art.Package = pkg
	b.logger.Info("built package", "package", pkg.Name, "artifact", art.Path, "duration", time.Since(start).Round(time.Millisecond))
	return art, nil
}

func (e *BuildError) Error() string {
	name := e.Package.Name
	if name == "" {
		name = e.Package.Dir
	}
	return fmt.Sprintf("build %s: %v", name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error { return e.Err }

// Is reports whether target is ErrBuild.
func (e *BuildError) Is(target error) bool { return target == ErrBuild }
