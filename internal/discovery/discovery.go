// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/modinstall/modinstall/internal/config"
)

const (
	// RoleCore marks one of the fixed core packages.
	RoleCore Role = "core"
	// RoleModule marks a pluggable command module.
	RoleModule Role = "module"
)

// ErrCorePackagesMissing is the sentinel wrapped by DiscoveryError.
var ErrCorePackagesMissing = errors.New("core packages missing")

type (
	// Role distinguishes core packages from command modules.
	Role string

	// Package is a buildable package directory.
	Package struct {
		// Dir is the absolute package directory.
		Dir string `json:"dir" yaml:"dir"`
		// RelPath is Dir relative to the source root, slash-separated.
		RelPath string `json:"rel_path" yaml:"rel_path"`
		Role    Role   `json:"role" yaml:"role"`
		// Name is the distribution name read from the package metadata. It is
		// for display; installs use the name of the built artifact.
		Name string `json:"name" yaml:"name"`
	}

	// DiscoveryError is returned when core package directories are missing.
	DiscoveryError struct {
		Root    string
		Missing []string
	}

	// Discoverer finds packages according to a layout.
	Discoverer struct {
		layout config.LayoutConfig
		// open returns the filesystem of a source root.
		open   func(root string) fs.FS
		logger *slog.Logger
	}

	// Option configures a Discoverer.
	Option func(*Discoverer)
)

// WithFS replaces os.DirFS as the source of source-root filesystems.
func WithFS(open func(root string) fs.FS) Option {
	return func(d *Discoverer) { d.open = open }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discoverer) { d.logger = logger }
}

// New returns a Discoverer for layout.
func New(layout config.LayoutConfig, opts ...Option) *Discoverer {
	d := &Discoverer{layout: layout, open: os.DirFS, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the packages of the source tree at sourceDir: core
// packages in configured order, then modules sorted by relative path.
// Finding no modules is not an error.
func (d *Discoverer) Discover(ctx context.Context, sourceDir string) ([]Package, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := filepath.Abs(filepath.Join(sourceDir, filepath.FromSlash(d.layout.SourceRoot)))
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	l := Lister{FS: d.open(root)}

	var missing []string
	core := make(map[string]bool, len(d.layout.CorePackages))
	pkgs := make([]Package, 0, len(d.layout.CorePackages))
	for _, rel := range d.layout.CorePackages {
		rel = path.Clean(filepath.ToSlash(rel))
		core[rel] = true
		if !l.IsDir(rel) {
			missing = append(missing, rel)
			continue
		}
		pkgs = append(pkgs, d.newPackage(l, root, rel, RoleCore))
	}
	if len(missing) > 0 {
		return nil, &DiscoveryError{Root: root, Missing: missing}
	}

	modules, err := l.Dirs(d.layout.ModulePattern)
	if err != nil {
		return nil, err
	}
	for _, rel := range modules {
		if core[rel] {
			d.logger.Debug("module is also a core package", "path", rel)
			continue
		}
		pkgs = append(pkgs, d.newPackage(l, root, rel, RoleModule))
	}

	d.logger.Debug("discovered packages", "root", root, "core", len(core), "modules", len(pkgs)-len(core))
	return pkgs, nil
}

func (d *Discoverer) newPackage(l Lister, root, rel string, role Role) Package {
	return Package{
		Dir:     filepath.Join(root, filepath.FromSlash(rel)),
		RelPath: rel,
		Role:    role,
		Name:    resolveName(l, rel),
	}
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("core packages missing under %s: %s", e.Root, strings.Join(e.Missing, ", "))
}

// Unwrap returns ErrCorePackagesMissing for errors.Is() compatibility.
func (e *DiscoveryError) Unwrap() error { return ErrCorePackagesMissing }
