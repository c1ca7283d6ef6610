// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modinstall/modinstall/internal/build"
	"github.com/modinstall/modinstall/internal/completion"
	"github.com/modinstall/modinstall/internal/config"
	"github.com/modinstall/modinstall/internal/discovery"
	"github.com/modinstall/modinstall/internal/hostpkg"
	"github.com/modinstall/modinstall/internal/install"
	"github.com/modinstall/modinstall/internal/issue"
	"github.com/modinstall/modinstall/internal/launcher"
	"github.com/modinstall/modinstall/internal/ledger"
	"github.com/modinstall/modinstall/internal/pipeline"
	"github.com/modinstall/modinstall/internal/provision"
	"github.com/modinstall/modinstall/internal/verify"
	"github.com/modinstall/modinstall/pkg/types"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and reaches
	// configuration and output through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// session is the per-invocation state shared by subcommands: the loaded
	// config, where it came from, and the logger built from the verbosity.
	session struct {
		cfg        *config.Config
		configPath string
		logger     *slog.Logger
		verbose    bool
	}

	// installPaths are the absolute locations one install writes to.
	installPaths struct {
		Source        string
		Prefix        string
		Env           string
		BinDir        string
		CompletionDir string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// loadSession loads configuration and builds the session logger. Config
// errors are usage errors.
func (a *App) loadSession(ctx context.Context, flags *rootFlagValues) (*session, error) {
	cfg, source, err := a.Config.LoadWithSource(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		styled := ErrorStyle.Render("Error: ") + formatErrorForDisplay(err, flags.verbose) + "\n"
		return nil, &ExitError{
			Code: types.ExitUsage,
			Err:  newServiceError(err, issue.ConfigLoadFailedId, styled),
		}
	}

	verbose := flags.verbose || cfg.UI.Verbose
	logger := newLogger(a.stderr, verbose)
	slog.SetDefault(logger)

	return &session{cfg: cfg, configPath: source, logger: logger, verbose: verbose}, nil
}

// newLogger returns a slog logger backed by a charmbracelet/log handler.
// Component logs are shown from Warn up unless verbose is set.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Prefix:          "modinstall",
		Level:           level,
		ReportTimestamp: verbose,
	})
	return slog.New(handler)
}

// resolvePaths turns the configured layout and the command line into
// absolute paths. Relative config paths are anchored at prefix.
func resolvePaths(cfg *config.Config, source, prefix, binDir, completionDir string) (installPaths, error) {
	var p installPaths
	var err error

	if p.Source, err = filepath.Abs(source); err != nil {
		return p, fmt.Errorf("resolve source directory: %w", err)
	}
	if p.Prefix, err = filepath.Abs(prefix); err != nil {
		return p, fmt.Errorf("resolve prefix: %w", err)
	}

	anchor := func(flag, configured string) string {
		if flag != "" {
			if abs, absErr := filepath.Abs(flag); absErr == nil {
				return abs
			}
			return flag
		}
		if filepath.IsAbs(configured) {
			return filepath.Clean(configured)
		}
		return filepath.Join(p.Prefix, configured)
	}

	p.Env = anchor("", cfg.Environment.Prefix)
	p.BinDir = anchor(binDir, cfg.Launcher.BinDir)
	p.CompletionDir = anchor(completionDir, cfg.Completion.Dir)
	return p, nil
}

// newHost returns the pip-backed host. Subprocess output is echoed to echo
// when it is non-nil.
func newHost(cfg *config.Config, logger *slog.Logger, echo io.Writer) *hostpkg.Pip {
	return hostpkg.NewPip(cfg.Environment.Python, hostpkg.ExecRunner{Echo: echo}, logger)
}

// newPipeline assembles the production pipeline for cfg.
func newPipeline(cfg *config.Config, logger *slog.Logger, echo io.Writer, recorder pipeline.Recorder, opts ...pipeline.Option) *pipeline.Pipeline {
	host := newHost(cfg, logger, echo)
	components := pipeline.Components{
		Provisioner: provision.New(host, logger),
		Discoverer:  discovery.New(cfg.Layout, discovery.WithLogger(logger)),
		Builder:     build.NewBuilder(host, logger),
		Installer:   install.New(host, cfg.Remote.IndexURL, logger),
		Launcher: &launcher.Synthesizer{
			CommandName: cfg.Launcher.CommandName,
			EntryPoint:  cfg.Launcher.EntryPoint,
			Logger:      logger,
		},
		Completion: &completion.Generator{Handler: cfg.Completion.Handler, Logger: logger},
		Verifier:   verify.NewHarness(cfg.Verify.Shell, cfg.Verify.ProbeArg, logger),
	}
	if recorder != nil {
		components.Recorder = recorder
	}
	return pipeline.New(components, append([]pipeline.Option{pipeline.WithLogger(logger)}, opts...)...)
}

// openLedger opens the run history. A history that cannot be opened is
// reported and skipped; installs do not depend on it.
func (s *session) openLedger(ctx context.Context) *ledger.Store {
	dir, err := config.StateDir(s.cfg)
	if err == nil {
		err = os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		s.logger.Warn("run history unavailable", "error", err)
		return nil
	}
	store, err := ledger.Open(ctx, filepath.Join(dir, ledger.FileName))
	if err != nil {
		s.logger.Warn("run history unavailable", "error", err)
		return nil
	}
	return store
}
