// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ShellAuto uses the host bash when it is on PATH, the embedded interpreter otherwise.
	ShellAuto ShellMode = "auto"
	// ShellNative sources the completion script with the host bash.
	ShellNative ShellMode = "native"
	// ShellVirtual sources the completion script with the embedded mvdan/sh interpreter.
	ShellVirtual ShellMode = "virtual"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidShellMode is returned when a ShellMode value is not recognized.
	ErrInvalidShellMode = errors.New("invalid shell mode")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidLayout is the sentinel error wrapped by InvalidLayoutError.
	ErrInvalidLayout = errors.New("invalid layout config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ShellMode selects how the verification harness sources completion scripts.
	ShellMode string

	// InvalidShellModeError is returned when a ShellMode value is not recognized.
	InvalidShellModeError struct {
		Value ShellMode
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidLayoutError collects field errors of a LayoutConfig.
	InvalidLayoutError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Layout describes where packages live in the source tree.
		Layout LayoutConfig `json:"layout" mapstructure:"layout"`
		// Environment configures the isolated runtime environment.
		Environment EnvironmentConfig `json:"environment" mapstructure:"environment"`
		// Launcher configures the generated launcher script.
		Launcher LauncherConfig `json:"launcher" mapstructure:"launcher"`
		// Completion configures the generated completion script.
		Completion CompletionConfig `json:"completion" mapstructure:"completion"`
		// Remote configures the fallback package index.
		Remote RemoteConfig `json:"remote" mapstructure:"remote"`
		// Verify configures the post-install checks.
		Verify VerifyConfig `json:"verify" mapstructure:"verify"`
		// StateDir holds the run history database. Empty means the config directory.
		StateDir string `json:"state_dir" mapstructure:"state_dir"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// LayoutConfig describes the package layout of a source tree.
	LayoutConfig struct {
		// SourceRoot is the directory, relative to the source tree, holding all packages.
		SourceRoot string `json:"source_root" mapstructure:"source_root"`
		// CorePackages are the fixed core package directories, in install order.
		// The first entry is the primary package.
		CorePackages []string `json:"core_packages" mapstructure:"core_packages"`
		// ModulePattern is a doublestar glob, relative to SourceRoot, matching module directories.
		ModulePattern string `json:"module_pattern" mapstructure:"module_pattern"`
	}

	EnvironmentConfig struct {
		// Prefix is the environment root.
		Prefix string `json:"prefix" mapstructure:"prefix"`
		// Python is the host interpreter used to create the environment.
		Python string `json:"python" mapstructure:"python"`
	}

	LauncherConfig struct {
		BinDir      string `json:"bin_dir" mapstructure:"bin_dir"`
		CommandName string `json:"command_name" mapstructure:"command_name"`
		// EntryPoint is the module run with `python -m`.
		EntryPoint string `json:"entry_point" mapstructure:"entry_point"`
	}

	CompletionConfig struct {
		Dir string `json:"dir" mapstructure:"dir"`
		// Handler is the bash function bound to the command name.
		Handler string `json:"handler" mapstructure:"handler"`
	}

	// RemoteConfig configures where pip may look for packages that were not built locally.
	// An empty IndexURL means offline installs.
	RemoteConfig struct {
		IndexURL string `json:"index_url" mapstructure:"index_url"`
	}

	VerifyConfig struct {
		Enabled  bool      `json:"enabled" mapstructure:"enabled"`
		ProbeArg string    `json:"probe_arg" mapstructure:"probe_arg"`
		Shell    ShellMode `json:"shell" mapstructure:"shell"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidShellModeError.
func (e *InvalidShellModeError) Error() string {
	return fmt.Sprintf("invalid shell mode %q (valid: auto, native, virtual)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidShellModeError) Unwrap() error { return ErrInvalidShellMode }

func (m ShellMode) String() string { return string(m) }

// IsValid returns whether the ShellMode is one of the defined modes,
// and a list of validation errors if it is not.
func (m ShellMode) IsValid() (bool, []error) {
	switch m {
	case ShellAuto, ShellNative, ShellVirtual:
		return true, nil
	default:
		return false, []error{&InvalidShellModeError{Value: m}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidLayoutError.
func (e *InvalidLayoutError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return "invalid layout config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidLayout for errors.Is() compatibility.
func (e *InvalidLayoutError) Unwrap() error { return ErrInvalidLayout }

// IsValid checks that at least one core package is configured, that core
// package entries are unique and non-blank, and that the module pattern is set.
func (l LayoutConfig) IsValid() (bool, []error) {
	var errs []error
	if len(l.CorePackages) == 0 {
		errs = append(errs, errors.New("core_packages: at least one core package is required"))
	}
	seen := make(map[string]bool, len(l.CorePackages))
	for i, p := range l.CorePackages {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("core_packages[%d]: must be non-empty", i))
			continue
		}
		if seen[p] {
			errs = append(errs, fmt.Errorf("core_packages[%d]: duplicate entry %q", i, p))
		}
		seen[p] = true
	}
	if strings.TrimSpace(l.ModulePattern) == "" {
		errs = append(errs, errors.New("module_pattern: must be non-empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidLayoutError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, fe := range e.FieldErrors {
		msgs = append(msgs, fe.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid returns whether the Config has valid fields.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Layout.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Verify.Shell.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if strings.TrimSpace(c.Launcher.EntryPoint) == "" {
		errs = append(errs, errors.New("launcher.entry_point: must be non-empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Offline reports whether installs must be served from staged artifacts only.
func (c Config) Offline() bool {
	return strings.TrimSpace(c.Remote.IndexURL) == ""
}

// DefaultConfig returns the default configuration. The layout defaults
// describe the azure-cli source tree; paths are relative to the working directory.
func DefaultConfig() *Config {
	return &Config{
		Layout: LayoutConfig{
			SourceRoot: "src",
			CorePackages: []string{
				"azure-cli",
				"azure-cli-core",
				"azure-cli-nspkg",
				"azure-cli-command_modules-nspkg",
			},
			ModulePattern: "command_modules/azure-cli-*",
		},
		Environment: EnvironmentConfig{
			Prefix: "libexec",
			Python: "python3",
		},
		Launcher: LauncherConfig{
			BinDir:      "bin",
			CommandName: "az",
			EntryPoint:  "azure.cli",
		},
		Completion: CompletionConfig{
			Dir:     "etc/bash_completion.d",
			Handler: "_python_argcomplete",
		},
		Verify: VerifyConfig{
			Enabled:  true,
			ProbeArg: "--version",
			Shell:    ShellAuto,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}
