// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/modinstall/modinstall/internal/build"
	"github.com/modinstall/modinstall/internal/completion"
	"github.com/modinstall/modinstall/internal/discovery"
	"github.com/modinstall/modinstall/internal/hostpkg"
	"github.com/modinstall/modinstall/internal/launcher"
	"github.com/modinstall/modinstall/internal/ledger"
	"github.com/modinstall/modinstall/internal/provision"
	"github.com/modinstall/modinstall/internal/verify"

	"github.com/google/uuid"
)

// ErrEnvironmentLocked is returned when another run holds the environment lock.
var ErrEnvironmentLocked = errors.New("environment is locked by another run")

type (
	// Provisioner creates or reuses the environment.
	Provisioner interface {
		Create(ctx context.Context, target string) (hostpkg.Environment, error)
	}

	// Discoverer lists the packages of a source tree in build order.
	Discoverer interface {
		Discover(ctx context.Context, sourceDir string) ([]discovery.Package, error)
	}

	// Builder builds one package into the staging directory.
	Builder interface {
		Build(ctx context.Context, env hostpkg.Environment, pkg discovery.Package, stagingDir string) (build.Artifact, error)
	}

	// Installer installs the primary package and the modules.
	Installer interface {
		Install(ctx context.Context, env hostpkg.Environment, coreName string, moduleNames []string, stagingDir string) error
	}

	// LauncherSynthesizer writes the launcher.
	LauncherSynthesizer interface {
		Synthesize(env hostpkg.Environment, binDir string) (*launcher.Script, error)
	}

	// CompletionGenerator renders and installs the completion script.
	CompletionGenerator interface {
		Generate(commandName string) (*completion.Script, error)
		Install(script *completion.Script, dir string) (string, error)
	}

	// Verifier checks the installed files.
	Verifier interface {
		Verify(ctx context.Context, t verify.Target) error
	}

	// Recorder stores a summary of every finished run.
	Recorder interface {
		Record(ctx context.Context, e ledger.Entry) error
	}

	// Request describes one install run.
	Request struct {
		SourceDir     string
		EnvPath       string
		BinDir        string
		CompletionDir string
		// Verify enables the verification phase.
		Verify bool
	}

	// Result is the outcome of a run. On failure it holds whatever the
	// completed phases produced.
	Result struct {
		RunID          string              `json:"run_id" yaml:"run_id"`
		State          State               `json:"-" yaml:"-"`
		Environment    hostpkg.Environment `json:"environment" yaml:"environment"`
		Packages       []discovery.Package `json:"packages" yaml:"packages"`
		Artifacts      []build.Artifact    `json:"artifacts" yaml:"artifacts"`
		Launcher       *launcher.Script    `json:"launcher,omitempty" yaml:"launcher,omitempty"`
		Completion     *completion.Script  `json:"completion,omitempty" yaml:"completion,omitempty"`
		CompletionPath string              `json:"completion_path,omitempty" yaml:"completion_path,omitempty"`
		StartedAt      time.Time           `json:"started_at" yaml:"started_at"`
		Duration       time.Duration       `json:"duration" yaml:"duration"`
	}

	// Components are the collaborators of a Pipeline. Recorder is optional.
	Components struct {
		Provisioner Provisioner
		Discoverer  Discoverer
		Builder     Builder
		Installer   Installer
		Launcher    LauncherSynthesizer
		Completion  CompletionGenerator
		Verifier    Verifier
		Recorder    Recorder
	}

	// Pipeline runs install requests.
	Pipeline struct {
		c      Components
		logger *slog.Logger
		// stagingRoot is the parent of staging directories; empty means os.TempDir().
		stagingRoot string
		// onTransition observes every state change.
		onTransition func(from, to State)
		clock        Clock
	}

	// Clock supplies the run timestamps.
	Clock interface {
		Now() time.Time
	}

	systemClock struct{}

	// Option configures a Pipeline.
	Option func(*Pipeline)
)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithStagingRoot sets the directory staging directories are created in.
func WithStagingRoot(dir string) Option {
	return func(p *Pipeline) { p.stagingRoot = dir }
}

// WithTransitionHook registers fn to observe state changes.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(p *Pipeline) { p.onTransition = fn }
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

func (systemClock) Now() time.Time { return time.Now() }

// New returns a Pipeline.
func New(c Components, opts ...Option) *Pipeline {
	p := &Pipeline{c: c, logger: slog.Default(), clock: systemClock{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes req. The returned error is a *PhaseError for every failure
// of a phase.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), State: StateIdle, StartedAt: p.clock.Now()}
	r := &run{p: p, res: res, req: req}

	err := r.execute(ctx)
	res.Duration = p.clock.Now().Sub(res.StartedAt)
	p.record(ctx, r, err)
	return res, err
}

// run is the mutable state of one Run call.
type run struct {
	p   *Pipeline
	res *Result
	req Request
}

func (r *run) execute(ctx context.Context) error {
	envPath, err := filepath.Abs(r.req.EnvPath)
	if err != nil {
		return r.fail(PhaseProvision, err)
	}

	if err := r.to(StateProvisioning); err != nil {
		return err
	}
	lock, err := acquireEnvLock(filepath.Clean(envPath) + ".lock")
	if err != nil {
		if !errors.Is(err, ErrEnvironmentLocked) {
			err = &provision.EnvironmentCreationError{Target: envPath, Err: err}
		}
		return r.fail(PhaseProvision, err)
	}
	defer lock.Release()

	env, err := r.p.c.Provisioner.Create(ctx, envPath)
	if err != nil {
		return r.fail(PhaseProvision, err)
	}
	r.res.Environment = env

	if err := r.to(StateDiscovering); err != nil {
		return err
	}
	pkgs, err := r.p.c.Discoverer.Discover(ctx, r.req.SourceDir)
	if err != nil {
		return r.fail(PhaseDiscover, err)
	}
	r.res.Packages = pkgs
	r.p.logger.Info("discovered packages", "count", len(pkgs))

	if err := r.buildAndInstall(ctx, env, pkgs); err != nil {
		return err
	}

	if err := r.to(StateSynthesizing); err != nil {
		return err
	}
	script, err := r.p.c.Launcher.Synthesize(env, r.req.BinDir)
	if err != nil {
		return r.fail(PhaseLauncher, err)
	}
	r.res.Launcher = script

	if err := r.to(StateCompletionGenerating); err != nil {
		return err
	}
	comp, err := r.p.c.Completion.Generate(script.CommandName)
	if err != nil {
		return r.fail(PhaseCompletion, err)
	}
	compPath, err := r.p.c.Completion.Install(comp, r.req.CompletionDir)
	if err != nil {
		return r.fail(PhaseCompletion, err)
	}
	r.res.Completion = comp
	r.res.CompletionPath = compPath

	if !r.req.Verify {
		return r.to(StateInstalled)
	}

	if err := r.to(StateVerifying); err != nil {
		return err
	}
	target := verify.Target{
		LauncherPath:   script.Path,
		CompletionPath: compPath,
		CommandName:    script.CommandName,
		Handler:        comp.Handler,
	}
	if err := r.p.c.Verifier.Verify(ctx, target); err != nil {
		return r.fail(PhaseVerify, err)
	}
	return r.to(StateVerified)
}

// buildAndInstall runs the build and install phases inside a staging
// directory that is removed when they finish, whatever the outcome.
func (r *run) buildAndInstall(ctx context.Context, env hostpkg.Environment, pkgs []discovery.Package) error {
	if err := r.to(StateBuilding); err != nil {
		return err
	}
	if r.p.stagingRoot != "" {
		if err := os.MkdirAll(r.p.stagingRoot, 0o755); err != nil {
			return r.fail(PhaseBuild, fmt.Errorf("create staging root: %w", err))
		}
	}
	staging, err := os.MkdirTemp(r.p.stagingRoot, "modinstall-staging-*")
	if err != nil {
		return r.fail(PhaseBuild, fmt.Errorf("create staging directory: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			r.p.logger.Warn("failed to remove staging directory", "path", staging, "error", err)
		}
	}()

	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return r.fail(PhaseBuild, &build.BuildError{Package: pkg, Err: err})
		}
		art, err := r.p.c.Builder.Build(ctx, env, pkg, staging)
		if err != nil {
			return r.fail(PhaseBuild, err)
		}
		r.res.Artifacts = append(r.res.Artifacts, art)
	}

	if err := r.to(StateInstalling); err != nil {
		return err
	}
	primary, modules := installNames(r.res.Artifacts)
	if err := r.p.c.Installer.Install(ctx, env, primary, modules, staging); err != nil {
		return r.fail(PhaseInstall, err)
	}
	return nil
}

// installNames returns the distribution names to install, read from the
// built artifacts rather than from package metadata. The first core
// artifact is the primary package; the other core packages are its
// dependencies and are not listed. Modules follow in build order.
func installNames(arts []build.Artifact) (primary string, modules []string) {
	for _, a := range arts {
		switch {
		case a.Package.Role == discovery.RoleCore && primary == "":
			primary = a.Name
		case a.Package.Role == discovery.RoleModule:
			modules = append(modules, a.Name)
		}
	}
	return primary, modules
}

// to moves the run to next.
func (r *run) to(next State) error {
	from := r.res.State
	if !isAllowedTransition(from, next) {
		return &InvalidTransitionError{From: from, To: next}
	}
	r.res.State = next
	r.p.logger.Debug("state change", "run", r.res.RunID, "from", from, "to", next)
	if r.p.onTransition != nil {
		r.p.onTransition(from, next)
	}
	return nil
}

// fail moves the run to Failed and returns the phase error.
func (r *run) fail(phase Phase, err error) error {
	perr := &PhaseError{Phase: phase, Err: err}
	if terr := r.to(StateFailed); terr != nil {
		return errors.Join(perr, terr)
	}
	r.p.logger.Error("install failed", "phase", phase, "error", err)
	return perr
}

// record stores the run in the ledger. A ledger failure never fails the run.
func (p *Pipeline) record(ctx context.Context, r *run, runErr error) {
	if p.c.Recorder == nil {
		return
	}
	entry := ledger.Entry{
		ID:        r.res.RunID,
		StartedAt: r.res.StartedAt,
		Duration:  r.res.Duration,
		SourceDir: r.req.SourceDir,
		EnvRoot:   r.res.Environment.Root,
		Packages:  len(r.res.Artifacts),
		State:     r.res.State.String(),
	}
	if r.res.Launcher != nil {
		entry.CommandName = r.res.Launcher.CommandName
	}
	var perr *PhaseError
	if errors.As(runErr, &perr) {
		entry.Phase = string(perr.Phase)
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	// The run's context may already be canceled; the record is still wanted.
	if err := p.c.Recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		p.logger.Warn("failed to record run", "run", r.res.RunID, "error", err)
	}
}
