// SPDX-License-Identifier: MPL-2.0

package hostpkg

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/modinstall/modinstall/pkg/platform"
)

// venvMarker is written by the venv module at the root of every environment.
const venvMarker = "pyvenv.cfg"

// Environment is an isolated Python installation target.
type Environment struct {
	// Root is the absolute environment directory with symlinks resolved.
	Root string `json:"root" yaml:"root"`
	// Interpreter is the absolute path of the environment's python. It is
	// not symlink-resolved: the venv python is usually a link to the base
	// interpreter and must be invoked through the venv path.
	Interpreter string `json:"interpreter" yaml:"interpreter"`
}

// InterpreterPath returns the interpreter location inside an environment root.
func InterpreterPath(root string) string {
	if runtime.GOOS == platform.Windows {
		return filepath.Join(root, "Scripts", "python.exe")
	}
	return filepath.Join(root, "bin", "python")
}

// ProbeEnvironment reports the environment at target when it is complete:
// the venv marker and the interpreter must both be present.
func ProbeEnvironment(target string) (Environment, bool) {
	root, err := resolveRoot(target)
	if err != nil {
		return Environment{}, false
	}
	if !isFile(filepath.Join(root, venvMarker)) {
		return Environment{}, false
	}
	interp := InterpreterPath(root)
	if !isFile(interp) {
		return Environment{}, false
	}
	return Environment{Root: root, Interpreter: interp}, true
}

func resolveRoot(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve environment path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// isFile reports whether path exists and is not a directory. Symlinks are followed.
func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
