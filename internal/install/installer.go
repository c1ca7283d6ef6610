// SPDX-License-Identifier: MPL-2.0

package install

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/modinstall/modinstall/internal/build"
	"github.com/modinstall/modinstall/internal/hostpkg"
)

// ConstraintsFile is the name of the pin file written to the staging directory.
const ConstraintsFile = "constraints.txt"

const (
	// KindFailed is an install failure that could not be classified.
	KindFailed Kind = iota
	// KindArtifactNotFound means a requested package has no artifact.
	KindArtifactNotFound
	// KindDependencyConflict means the requested set cannot be resolved.
	KindDependencyConflict
)

var (
	// ErrInstall is the sentinel matched by every InstallError.
	ErrInstall = errors.New("install failed")
	// ErrArtifactNotFound is matched by InstallErrors of KindArtifactNotFound.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrDependencyConflict is matched by InstallErrors of KindDependencyConflict.
	ErrDependencyConflict = errors.New("dependency conflict")
)

// Output fragments the host installer prints for each failure kind.
var (
	notFoundMarkers = []string{
		"No matching distribution found",
		"Could not find a version that satisfies",
	}
	conflictMarkers = []string{
		"ResolutionImpossible",
		"conflicting dependencies",
		"Cannot install",
	}
)

type (
	// Kind classifies an install failure.
	Kind int

	// InstallError is returned when packages cannot be installed.
	InstallError struct {
		Kind Kind
		// Names are the packages involved. For KindArtifactNotFound detected
		// before invoking the host, these are exactly the missing names.
		Names  []string
		Output string
		Err    error
	}

	// Installer installs named packages from a staging directory.
	Installer struct {
		host hostpkg.Host
		// indexURL is the remote fallback. Empty means offline.
		indexURL string
		logger   *slog.Logger
	}
)

// New returns an Installer. An empty indexURL restricts installs to staged artifacts.
func New(host hostpkg.Host, indexURL string, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{host: host, indexURL: indexURL, logger: logger}
}

// Install installs coreName and moduleNames into env in a single host call.
func (in *Installer) Install(ctx context.Context, env hostpkg.Environment, coreName string, moduleNames []string, stagingDir string) error {
	names := requested(coreName, moduleNames)

	staged, err := build.Scan(stagingDir)
	if err != nil {
		return &InstallError{Kind: KindFailed, Names: names, Err: err}
	}
	byName := make(map[string]build.Artifact, len(staged))
	for _, a := range staged {
		byName[build.NormalizeName(a.Name)] = a
	}

	if in.indexURL == "" {
		var missing []string
		for _, n := range names {
			if _, ok := byName[build.NormalizeName(n)]; !ok {
				missing = append(missing, n)
			}
		}
		if len(missing) > 0 {
			return &InstallError{Kind: KindArtifactNotFound, Names: missing, Err: errors.New("no staged artifact and no remote index")}
		}
	}

	constraints, err := writeConstraints(stagingDir, staged)
	if err != nil {
		return &InstallError{Kind: KindFailed, Names: names, Err: err}
	}

	hint := hostpkg.SourceHint{FindLinks: stagingDir, Constraints: constraints, IndexURL: in.indexURL}
	in.logger.Info("installing packages", "count", len(names), "offline", in.indexURL == "")
	if err := in.host.InstallNamed(ctx, env, names, hint); err != nil {
		ierr := &InstallError{Kind: KindFailed, Names: names, Err: err}
		var cmdErr *hostpkg.CommandError
		if errors.As(err, &cmdErr) {
			ierr.Kind = Classify(cmdErr.Output)
			ierr.Output = cmdErr.Tail(20)
		}
		return ierr
	}
	return nil
}

// Classify maps host installer output to a failure kind.
func Classify(output string) Kind {
	for _, m := range notFoundMarkers {
		if strings.Contains(output, m) {
			return KindArtifactNotFound
		}
	}
	for _, m := range conflictMarkers {
		if strings.Contains(output, m) {
			return KindDependencyConflict
		}
	}
	return KindFailed
}

// requested returns coreName followed by moduleNames without duplicates.
func requested(coreName string, moduleNames []string) []string {
	names := make([]string, 0, len(moduleNames)+1)
	seen := make(map[string]bool, len(moduleNames)+1)
	for _, n := range append([]string{coreName}, moduleNames...) {
		key := build.NormalizeName(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, n)
	}
	return names
}

// writeConstraints pins every staged artifact to its version. It returns ""
// when nothing is staged.
func writeConstraints(stagingDir string, staged []build.Artifact) (string, error) {
	if len(staged) == 0 {
		return "", nil
	}
	lines := make([]string, 0, len(staged))
	for _, a := range staged {
		lines = append(lines, fmt.Sprintf("%s==%s", build.NormalizeName(a.Name), a.Version))
	}
	slices.Sort(lines)
	lines = slices.Compact(lines)

	path := filepath.Join(stagingDir, ConstraintsFile)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write constraints: %w", err)
	}
	return path, nil
}

func (k Kind) String() string {
	switch k {
	case KindArtifactNotFound:
		return "artifact not found"
	case KindDependencyConflict:
		return "dependency conflict"
	default:
		return "failed"
	}
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s: %s: %v", strings.Join(e.Names, ", "), e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *InstallError) Unwrap() error { return e.Err }

// Is matches ErrInstall and the sentinel of the error's kind.
func (e *InstallError) Is(target error) bool {
	switch target {
	case ErrInstall:
		return true
	case ErrArtifactNotFound:
		return e.Kind == KindArtifactNotFound
	case ErrDependencyConflict:
		return e.Kind == KindDependencyConflict
	}
	return false
}
