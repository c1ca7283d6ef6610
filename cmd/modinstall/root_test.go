// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modinstall/modinstall/internal/config"
	"github.com/modinstall/modinstall/internal/pipeline"

	"github.com/google/go-cmp/cmp"
)

func TestGetVersionString(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = origVersion, origCommit, origDate })

	Version = "dev"
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q", got)
	}

	Version, Commit, BuildDate = "1.2.0", "abc123", "2026-01-01"
	if got, want := getVersionString(), "1.2.0 (commit: abc123, built: 2026-01-01)"; got != want {
		t.Errorf("getVersionString() = %q, want %q", got, want)
	}
}

func TestNewRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}))

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	want := []string{"completion-script", "config", "discover", "history", "install", "verify"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePaths(t *testing.T) {
	t.Parallel()

	prefix := t.TempDir()
	cfg := config.DefaultConfig()

	got, err := resolvePaths(cfg, prefix, prefix, "", "")
	if err != nil {
		t.Fatalf("resolvePaths() error: %v", err)
	}
	want := installPaths{
		Source:        prefix,
		Prefix:        prefix,
		Env:           filepath.Join(prefix, "libexec"),
		BinDir:        filepath.Join(prefix, "bin"),
		CompletionDir: filepath.Join(prefix, "etc", "bash_completion.d"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}

	// Flags win over config, and absolute config paths are kept.
	abs := filepath.Join(t.TempDir(), "env")
	cfg.Environment.Prefix = abs
	bin := filepath.Join(t.TempDir(), "bin")
	got, err = resolvePaths(cfg, prefix, prefix, bin, "")
	if err != nil {
		t.Fatalf("resolvePaths() error: %v", err)
	}
	if got.Env != abs {
		t.Errorf("Env = %q, want %q", got.Env, abs)
	}
	if got.BinDir != bin {
		t.Errorf("BinDir = %q, want %q", got.BinDir, bin)
	}
}

func TestOutputIgnores(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "src")
	paths := installPaths{
		Source:        src,
		Env:           filepath.Join(src, "libexec"),
		BinDir:        filepath.Join(filepath.Dir(src), "bin"),
		CompletionDir: filepath.Join(src, "etc", "bash_completion.d"),
	}

	want := []string{"libexec/**", "etc/bash_completion.d/**"}
	if diff := cmp.Diff(want, outputIgnores(paths)); diff != "" {
		t.Errorf("ignores mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSession_ConfigErrorIsUsageError(t *testing.T) {
	t.Parallel()

	app := NewApp(Dependencies{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	_, err := app.loadSession(context.Background(), &rootFlagValues{
		configPath: filepath.Join(t.TempDir(), "missing.cue"),
	})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Fatalf("loadSession() error = %v, want usage ExitError", err)
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) || !strings.Contains(svcErr.StyledMessage, "config file not found") {
		t.Errorf("styled message should explain the failure, got %+v", svcErr)
	}
}

func TestExitCodeOf(t *testing.T) {
	t.Parallel()

	phaseErr := &pipeline.PhaseError{Phase: pipeline.PhaseLauncher, Err: errors.New("read-only file system")}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("unknown flag"), 1},
		{"usage", usageError(errors.New("bad name")), 1},
		{"exit error", &ExitError{Code: 13, Err: errors.New("pip failed")}, 13},
		{"bare phase error", phaseErr, 14},
		{"wrapped phase error", fmt.Errorf("install: %w", phaseErr), 14},
		{"exit error wins over its cause", &ExitError{Code: 1, Err: phaseErr}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeOf(tt.err); got != tt.want {
				t.Errorf("exitCodeOf() = %d, want %d", got, tt.want)
			}
		})
	}

	if got := (&ExitError{Code: 16}).Error(); got != "exit code 16" {
		t.Errorf("Error() without cause = %q", got)
	}
}
