// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/modinstall/modinstall/internal/issue"
	"github.com/modinstall/modinstall/pkg/cueutil"
	"github.com/modinstall/modinstall/pkg/platform"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "modinstall"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment variable overrides (MODINSTALL_LAUNCHER_COMMAND_NAME, ...).
	EnvPrefix = "MODINSTALL"

	// maxConfigFileSize bounds the config file read.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the modinstall configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// StateDir returns the directory for the run history database.
func StateDir(cfg *Config) (string, error) {
	if cfg != nil && cfg.StateDir != "" {
		return cfg.StateDir, nil
	}
	return ConfigDir()
}

// setDefaults registers every key so that env overrides and Unmarshal see them.
func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("layout.source_root", defaults.Layout.SourceRoot)
	v.SetDefault("layout.core_packages", defaults.Layout.CorePackages)
	v.SetDefault("layout.module_pattern", defaults.Layout.ModulePattern)
	v.SetDefault("environment.prefix", defaults.Environment.Prefix)
	v.SetDefault("environment.python", defaults.Environment.Python)
	v.SetDefault("launcher.bin_dir", defaults.Launcher.BinDir)
	v.SetDefault("launcher.command_name", defaults.Launcher.CommandName)
	v.SetDefault("launcher.entry_point", defaults.Launcher.EntryPoint)
	v.SetDefault("completion.dir", defaults.Completion.Dir)
	v.SetDefault("completion.handler", defaults.Completion.Handler)
	v.SetDefault("remote.index_url", defaults.Remote.IndexURL)
	v.SetDefault("verify.enabled", defaults.Verify.Enabled)
	v.SetDefault("verify.probe_arg", defaults.Verify.ProbeArg)
	v.SetDefault("verify.shell", defaults.Verify.Shell)
	v.SetDefault("state_dir", defaults.StateDir)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

// loadWithOptions performs option-driven config loading. It returns the
// decoded config and the path of the file it came from ("" for defaults only).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'modinstall config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		localCuePath := AppName + "." + ConfigFileExt
		switch {
		case fileExists(cuePath):
			resolvedPath = cuePath
		case fileExists(localCuePath):
			// A project-local modinstall.cue next to the source tree.
			resolvedPath = localCuePath
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'modinstall config --help' for configuration options").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("At least one entry in layout.core_packages is required").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config fields are optional, so validation uses Concrete(false) and the
// result is decoded into a map rather than a struct.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, maxConfigFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes a default config file if none exists and
// returns its path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modinstall configuration file\n\n")

	sb.WriteString("layout: {\n")
	fmt.Fprintf(&sb, "\tsource_root: %q\n", cfg.Layout.SourceRoot)
	sb.WriteString("\tcore_packages: [\n")
	for _, p := range cfg.Layout.CorePackages {
		fmt.Fprintf(&sb, "\t\t%q,\n", p)
	}
	sb.WriteString("\t]\n")
	fmt.Fprintf(&sb, "\tmodule_pattern: %q\n", cfg.Layout.ModulePattern)
	sb.WriteString("}\n")

	sb.WriteString("\nenvironment: {\n")
	fmt.Fprintf(&sb, "\tprefix: %q\n", cfg.Environment.Prefix)
	fmt.Fprintf(&sb, "\tpython: %q\n", cfg.Environment.Python)
	sb.WriteString("}\n")

	sb.WriteString("\nlauncher: {\n")
	fmt.Fprintf(&sb, "\tbin_dir: %q\n", cfg.Launcher.BinDir)
	fmt.Fprintf(&sb, "\tcommand_name: %q\n", cfg.Launcher.CommandName)
	fmt.Fprintf(&sb, "\tentry_point: %q\n", cfg.Launcher.EntryPoint)
	sb.WriteString("}\n")

	sb.WriteString("\ncompletion: {\n")
	fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Completion.Dir)
	fmt.Fprintf(&sb, "\thandler: %q\n", cfg.Completion.Handler)
	sb.WriteString("}\n")

	sb.WriteString("\n// Leave index_url empty to install from locally built artifacts only.\n")
	sb.WriteString("remote: {\n")
	fmt.Fprintf(&sb, "\tindex_url: %q\n", cfg.Remote.IndexURL)
	sb.WriteString("}\n")

	sb.WriteString("\nverify: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Verify.Enabled)
	fmt.Fprintf(&sb, "\tprobe_arg: %q\n", cfg.Verify.ProbeArg)
	fmt.Fprintf(&sb, "\tshell: %q\n", cfg.Verify.Shell)
	sb.WriteString("}\n")

	if cfg.StateDir != "" {
		fmt.Fprintf(&sb, "\nstate_dir: %q\n", cfg.StateDir)
	}

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
