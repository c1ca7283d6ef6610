// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/modinstall/modinstall/internal/issue"
	"github.com/modinstall/modinstall/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	testutil.MustMkdirAll(t, dir, 0o755)
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if got := cfg.Layout.CorePackages[0]; got != "azure-cli" {
		t.Errorf("primary core package = %q, want azure-cli", got)
	}
	if cfg.Launcher.CommandName != "az" {
		t.Errorf("CommandName = %q, want az", cfg.Launcher.CommandName)
	}
	if cfg.Completion.Handler != "_python_argcomplete" {
		t.Errorf("Handler = %q, want _python_argcomplete", cfg.Completion.Handler)
	}
	if !cfg.Verify.Enabled {
		t.Error("verification should be enabled by default")
	}
	if !cfg.Offline() {
		t.Error("default config should be offline (no index url)")
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig().IsValid() = false: %v", errs)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg-config")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join("/tmp/test-xdg-config", AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, path, err := NewProvider().LoadWithSource(context.Background(), LoadOptions{
		ConfigDirPath: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if path != "" {
		t.Errorf("source path = %q, want empty", path)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
layout: {
	core_packages: ["core-a", "core-b"]
}
launcher: command_name: "mycli"
remote: index_url: "https://pypi.org/simple"
verify: shell: "virtual"
`)

	cfg, source, err := NewProvider().LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if source != path {
		t.Errorf("source = %q, want %q", source, path)
	}
	if diff := cmp.Diff([]string{"core-a", "core-b"}, cfg.Layout.CorePackages); diff != "" {
		t.Errorf("core packages mismatch (-want +got):\n%s", diff)
	}
	if cfg.Launcher.CommandName != "mycli" {
		t.Errorf("CommandName = %q, want mycli", cfg.Launcher.CommandName)
	}
	// Untouched keys keep their defaults.
	if cfg.Launcher.EntryPoint != "azure.cli" {
		t.Errorf("EntryPoint = %q, want default azure.cli", cfg.Launcher.EntryPoint)
	}
	if cfg.Offline() {
		t.Error("config with an index url should not be offline")
	}
	if cfg.Verify.Shell != ShellVirtual {
		t.Errorf("Shell = %q, want virtual", cfg.Verify.Shell)
	}
}

func TestLoad_RejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", `launcher: colour: "red"`},
		{"bad shell mode", `verify: shell: "zsh"`},
		{"bad command name", `launcher: command_name: "-bad"`},
		{"syntax error", `layout: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
			if err == nil {
				t.Fatal("Load() should fail")
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("error should be *issue.ActionableError, got %T", err)
			}
			if ae.Operation != "load configuration" {
				t.Errorf("Operation = %q", ae.Operation)
			}
		})
	}
}

func TestLoad_EmptyCorePackagesIsInvalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `layout: core_packages: []`)

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "at least one core package") {
		t.Errorf("error should name the layout problem, got: %v", err)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("Load() error = %v, want config file not found", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MODINSTALL_LAUNCHER_COMMAND_NAME", "azdev")
	t.Setenv("MODINSTALL_VERIFY_ENABLED", "false")

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Launcher.CommandName != "azdev" {
		t.Errorf("CommandName = %q, want azdev", cfg.Launcher.CommandName)
	}
	if cfg.Verify.Enabled {
		t.Error("Verify.Enabled should be overridden to false")
	}
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	want := DefaultConfig()
	want.Remote.IndexURL = "https://example.invalid/simple"
	want.StateDir = "/var/lib/modinstall"
	want.UI.Verbose = true

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(want))

	got, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() of generated config failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), AppName)
	defer SetConfigDirOverride(configDir)()

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() returned error: %v", err)
	}
	if want := filepath.Join(configDir, ConfigFileName+"."+ConfigFileExt); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	// Existing files are left alone.
	if err := os.WriteFile(path, []byte("// custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("second CreateDefaultConfig() returned error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "// custom\n" {
		t.Errorf("CreateDefaultConfig() overwrote an existing file: %q", content)
	}
}

func TestStateDir(t *testing.T) {
	restore := SetConfigDirOverride("/cfg/modinstall")
	defer restore()

	dir, err := StateDir(&Config{})
	if err != nil || dir != "/cfg/modinstall" {
		t.Errorf("StateDir(empty) = %q, %v", dir, err)
	}
	dir, err = StateDir(&Config{StateDir: "/state"})
	if err != nil || dir != "/state" {
		t.Errorf("StateDir(/state) = %q, %v", dir, err)
	}

	// Overrides nest and unwind in order.
	inner := SetConfigDirOverride("/other")
	if dir, _ := ConfigDir(); dir != "/other" {
		t.Errorf("ConfigDir() = %q, want /other", dir)
	}
	inner()
	if dir, _ := ConfigDir(); dir != "/cfg/modinstall" {
		t.Errorf("ConfigDir() after restore = %q, want /cfg/modinstall", dir)
	}
}

func TestConfigDir_FallsBackToHome(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}

	home := t.TempDir()
	testutil.SetHomeDir(t, home)
	testutil.MustUnsetenv(t, "XDG_CONFIG_HOME")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join(home, ".config", AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}
}

func TestLoad_ProjectLocalFile(t *testing.T) {
	project := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(project, AppName+"."+ConfigFileExt), `launcher: command_name: "local"`, 0o644)
	testutil.MustChdir(t, project)

	cfg, source, err := NewProvider().LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if source != AppName+"."+ConfigFileExt {
		t.Errorf("source = %q, want the project-local file", source)
	}
	if cfg.Launcher.CommandName != "local" {
		t.Errorf("CommandName = %q, want local", cfg.Launcher.CommandName)
	}

	// The user config directory wins over the project-local file.
	userDir := t.TempDir()
	writeConfig(t, userDir, `launcher: command_name: "user"`)
	cfg, err = NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: userDir})
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Launcher.CommandName != "user" {
		t.Errorf("CommandName = %q, want user", cfg.Launcher.CommandName)
	}
}
