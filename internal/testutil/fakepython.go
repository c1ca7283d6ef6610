// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// FakePythonScript is a POSIX sh stand-in for a Python interpreter. It
// understands exactly the invocations modinstall makes:
//
//   - python -m venv DIR          creates DIR/bin/python (a copy of itself) and DIR/pyvenv.cfg
//   - python setup.py ... -d OUT  writes OUT/<name>-1.0.0-py3-none-any.whl, or fails when ./FAIL_BUILD exists
//   - python -m pip wheel ... -w OUT DIR   same, for pyproject-only packages
//   - python -m pip install ...   succeeds, or prints $FAKE_PIP_FAIL and fails when it is set
//   - python -m <entry> ...       prints "fakecli 1.0.0"
//
// The wheel name comes from a DIST_NAME file in the package directory (a
// name only known once setup.py runs), the setup.py name literal, or the
// directory name.
// Every invocation is appended to $FAKE_PYTHON_LOG when set.
const FakePythonScript = `#!/bin/sh
if [ -n "$FAKE_PYTHON_LOG" ]; then
	echo "$*" >> "$FAKE_PYTHON_LOG"
fi

wheel_for() {
	name=""
	if [ -f "$2/DIST_NAME" ]; then
		name=$(cat "$2/DIST_NAME")
	elif [ -f "$2/setup.py" ]; then
		name=$(sed -n "s/.*name *= *['\"]\([^'\"]*\)['\"].*/\1/p" "$2/setup.py" | head -n 1)
	fi
	if [ -z "$name" ]; then
		name=$(basename "$2")
	fi
	name=$(echo "$name" | tr '-' '_')
	: > "$1/${name}-1.0.0-py3-none-any.whl"
}

case "$1" in
-m)
	case "$2" in
	venv)
		mkdir -p "$3/bin" || exit 1
		cp "$0" "$3/bin/python" || exit 1
		echo "home = /usr/bin" > "$3/pyvenv.cfg"
		exit 0
		;;
	pip)
		case "$3" in
		wheel)
			shift 3
			out=""
			dir=""
			while [ $# -gt 0 ]; do
				case "$1" in
				-w) out="$2"; shift 2 ;;
				-*) shift ;;
				*) dir="$1"; shift ;;
				esac
			done
			if [ -f "$dir/FAIL_BUILD" ]; then
				echo "error: build failed" >&2
				exit 1
			fi
			wheel_for "$out" "$dir"
			exit 0
			;;
		install)
			if [ -n "$FAKE_PIP_FAIL" ]; then
				echo "$FAKE_PIP_FAIL" >&2
				exit 1
			fi
			echo "Successfully installed"
			exit 0
			;;
		esac
		;;
	*)
		echo "fakecli 1.0.0"
		exit 0
		;;
	esac
	;;
setup.py)
	if [ -f FAIL_BUILD ]; then
		echo "error: build failed" >&2
		exit 1
	fi
	out=""
	while [ $# -gt 0 ]; do
		case "$1" in
		-d) out="$2"; shift 2 ;;
		*) shift ;;
		esac
	done
	wheel_for "$out" "$PWD"
	exit 0
	;;
esac
echo "fake python: unexpected arguments: $*" >&2
exit 2
`

// WriteFakePython writes FakePythonScript to dir/python3 and returns its path.
func WriteFakePython(t testing.TB, dir string) string {
	t.Helper()
	MustMkdirAll(t, dir, 0o755)
	path := filepath.Join(dir, "python3")
	if err := os.WriteFile(path, []byte(FakePythonScript), 0o755); err != nil {
		t.Fatalf("failed to write fake python: %v", err)
	}
	return path
}

// WritePackage creates a package directory under root with a setup.py
// declaring name. Extra files (like FAIL_BUILD) are created empty.
func WritePackage(t testing.TB, root, rel, name string, extra ...string) string {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(rel))
	MustMkdirAll(t, dir, 0o755)
	setup := "from setuptools import setup\n\nsetup(\n    name='" + name + "',\n    version='1.0.0',\n)\n"
	if err := os.WriteFile(filepath.Join(dir, "setup.py"), []byte(setup), 0o644); err != nil {
		t.Fatalf("failed to write setup.py: %v", err)
	}
	for _, f := range extra {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}
	return dir
}
