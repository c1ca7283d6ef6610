// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/modinstall/modinstall/internal/hostpkg"
	"github.com/modinstall/modinstall/internal/testutil"
)

func TestRender(t *testing.T) {
	t.Parallel()

	s := &Synthesizer{CommandName: "az", EntryPoint: "azure.cli"}

	tests := []struct {
		name   string
		interp string
		want   string
	}{
		{
			name:   "plain path",
			interp: "/opt/az/libexec/bin/python",
			want:   "#!/usr/bin/env bash\nexec /opt/az/libexec/bin/python -m azure.cli \"$@\"\n",
		},
		{
			name:   "path with spaces",
			interp: "/Applications/My Tools/libexec/bin/python",
			want:   "#!/usr/bin/env bash\nexec '/Applications/My Tools/libexec/bin/python' -m azure.cli \"$@\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if runtime.GOOS == "windows" {
				t.Skip("POSIX paths")
			}
			got, err := s.Render(hostpkg.Environment{Interpreter: tt.interp})
			if err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_InvalidEntryPoint(t *testing.T) {
	t.Parallel()

	for _, ep := range []string{"", "azure cli", "azure;rm", "1abc", "azure..cli"} {
		s := &Synthesizer{CommandName: "az", EntryPoint: ep}
		if _, err := s.Render(hostpkg.Environment{Interpreter: "/env/bin/python"}); !errors.Is(err, ErrInvalidEntryPoint) {
			t.Errorf("Render() with entry point %q error = %v, want ErrInvalidEntryPoint", ep, err)
		}
	}
}

func TestSynthesize_WritesExecutableAndOverwrites(t *testing.T) {
	t.Parallel()

	binDir := filepath.Join(t.TempDir(), "bin")
	s := &Synthesizer{CommandName: "az", EntryPoint: "azure.cli"}

	first, err := s.Synthesize(hostpkg.Environment{Interpreter: "/one/bin/python"}, binDir)
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	second, err := s.Synthesize(hostpkg.Environment{Interpreter: "/two/bin/python"}, binDir)
	if err != nil {
		t.Fatalf("second Synthesize() error: %v", err)
	}
	if first.Path != second.Path {
		t.Errorf("paths differ: %q vs %q", first.Path, second.Path)
	}

	content, err := os.ReadFile(second.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != second.Body || !strings.Contains(string(content), "two") {
		t.Errorf("launcher content = %q, want the second body", content)
	}

	entries, err := os.ReadDir(binDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("bin dir has %d entries, want exactly one launcher", len(entries))
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(second.Path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != scriptMode {
			t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(scriptMode))
		}
	}
}

func TestSynthesize_WriteFailure(t *testing.T) {
	t.Parallel()

	// A regular file where the bin directory should be.
	blocker := filepath.Join(t.TempDir(), "bin")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := &Synthesizer{CommandName: "az", EntryPoint: "azure.cli"}
	_, err := s.Synthesize(hostpkg.Environment{Interpreter: "/env/bin/python"}, blocker)
	if !errors.Is(err, ErrLauncherWrite) {
		t.Fatalf("Synthesize() error = %v, want ErrLauncherWrite", err)
	}
	var lerr *LauncherWriteError
	if !errors.As(err, &lerr) || lerr.Path != filepath.Join(blocker, "az") {
		t.Errorf("error = %#v, want LauncherWriteError for %s", err, filepath.Join(blocker, "az"))
	}
}

func TestSynthesize_LauncherRuns(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("launcher is a bash script")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	tmp := t.TempDir()
	python := testutil.WriteFakePython(t, filepath.Join(tmp, "env with space", "bin"))
	s := &Synthesizer{CommandName: "az", EntryPoint: "azure.cli"}

	script, err := s.Synthesize(hostpkg.Environment{Interpreter: python}, filepath.Join(tmp, "bin"))
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}

	// Run from an unrelated directory.
	cmd := exec.Command(script.Path, "--version")
	cmd.Dir = t.TempDir()
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("launcher failed: %v\n%s", err, out)
	}
	if strings.TrimSpace(string(out)) != "fakecli 1.0.0" {
		t.Errorf("launcher output = %q", out)
	}
}
