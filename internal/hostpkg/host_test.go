// SPDX-License-Identifier: MPL-2.0

package hostpkg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/modinstall/modinstall/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

// recordingRunner records every command and delegates to fn when set.
type recordingRunner struct {
	mu    sync.Mutex
	calls []Command
	fn    func(Command) (string, error)
}

func (r *recordingRunner) Run(_ context.Context, c Command) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(c)
	}
	return "", nil
}

func TestPip_CreateEnvironment(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{fn: func(c Command) (string, error) {
		// Simulate `python -m venv DIR`.
		root := c.Args[len(c.Args)-1]
		makeEnv(t, root, true, true)
		return "", nil
	}}
	target := filepath.Join(t.TempDir(), "nested", "libexec")

	env, err := NewPip("python3", runner, nil).CreateEnvironment(context.Background(), target)
	if err != nil {
		t.Fatalf("CreateEnvironment() error: %v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("runner calls = %d, want 1", len(runner.calls))
	}
	if diff := cmp.Diff([]string{"-m", "venv", target}, runner.calls[0].Args); diff != "" {
		t.Errorf("venv args mismatch (-want +got):\n%s", diff)
	}
	if env.Interpreter != InterpreterPath(env.Root) {
		t.Errorf("Interpreter = %q, want inside %q", env.Interpreter, env.Root)
	}
}

func TestPip_CreateEnvironment_Incomplete(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "env")
	_, err := NewPip("python3", &recordingRunner{}, nil).CreateEnvironment(context.Background(), target)
	if !errors.Is(err, ErrIncompleteEnvironment) {
		t.Fatalf("CreateEnvironment() error = %v, want ErrIncompleteEnvironment", err)
	}
}

func TestPip_CreateEnvironment_RunnerFailure(t *testing.T) {
	t.Parallel()

	want := &CommandError{ExitCode: 1, Err: errors.New("exit status 1")}
	runner := &recordingRunner{fn: func(Command) (string, error) { return "", want }}

	_, err := NewPip("python3", runner, nil).CreateEnvironment(context.Background(), filepath.Join(t.TempDir(), "env"))
	var cerr *CommandError
	if !errors.As(err, &cerr) || cerr != want {
		t.Fatalf("CreateEnvironment() error = %v, want the runner's CommandError", err)
	}
}

func TestPip_BuildArtifact_SelectsTool(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	withSetup := testutil.WritePackage(t, root, "src/core", "core")
	pyproject := filepath.Join(root, "src", "mod")
	testutil.MustMkdirAll(t, pyproject, 0o755)
	if err := os.WriteFile(filepath.Join(pyproject, "pyproject.toml"), []byte("[project]\nname = \"mod\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	env := Environment{Root: "/env", Interpreter: "/env/bin/python"}
	out := "/tmp/staging"

	tests := []struct {
		name string
		dir  string
		want []string
	}{
		{"setup.py", withSetup, []string{"setup.py", "--quiet", "bdist_wheel", "-d", out}},
		{"pyproject", pyproject, []string{"-m", "pip", "wheel", "--quiet", "--no-deps", "--disable-pip-version-check", "-w", out, pyproject}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := &recordingRunner{}
			if err := NewPip("python3", runner, nil).BuildArtifact(context.Background(), env, tt.dir, out); err != nil {
				t.Fatalf("BuildArtifact() error: %v", err)
			}
			got := runner.calls[0]
			if got.Name != env.Interpreter {
				t.Errorf("Name = %q, want the environment interpreter", got.Name)
			}
			if got.Dir != tt.dir {
				t.Errorf("Dir = %q, want %q", got.Dir, tt.dir)
			}
			if diff := cmp.Diff(tt.want, got.Args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInstallArgs(t *testing.T) {
	t.Parallel()

	base := []string{"-m", "pip", "install", "--disable-pip-version-check", "--upgrade"}

	tests := []struct {
		name  string
		names []string
		hint  SourceHint
		want  []string
	}{
		{
			name:  "offline with constraints",
			names: []string{"azure-cli", "azure-cli-vm"},
			hint:  SourceHint{FindLinks: "/stage", Constraints: "/stage/constraints.txt"},
			want: append(append([]string{}, base...),
				"--find-links", "/stage", "--no-index", "--constraint", "/stage/constraints.txt", "azure-cli", "azure-cli-vm"),
		},
		{
			name:  "remote index",
			names: []string{"azure-cli"},
			hint:  SourceHint{FindLinks: "/stage", IndexURL: "https://pypi.org/simple"},
			want: append(append([]string{}, base...),
				"--find-links", "/stage", "--index-url", "https://pypi.org/simple", "azure-cli"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, InstallArgs(tt.names, tt.hint)); diff != "" {
				t.Errorf("InstallArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
