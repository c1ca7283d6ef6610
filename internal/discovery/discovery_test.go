// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/modinstall/modinstall/internal/config"
	"github.com/modinstall/modinstall/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

func testLayout(core ...string) config.LayoutConfig {
	return config.LayoutConfig{
		SourceRoot:    "src",
		CorePackages:  core,
		ModulePattern: "modules/*",
	}
}

func mapFS(dirs ...string) fstest.MapFS {
	m := fstest.MapFS{}
	for _, d := range dirs {
		m[d] = &fstest.MapFile{Mode: fs.ModeDir | 0o755}
	}
	return m
}

func relPaths(pkgs []Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.RelPath
	}
	return out
}

func TestDiscover_CoreFirstModulesSorted(t *testing.T) {
	t.Parallel()

	// MapFS has no insertion order; the on-disk test below covers readdir order.
	fsys := mapFS("A", "B", "C", "modules/M2", "modules/M1")
	d := New(testLayout("A", "B", "C"), WithFS(func(string) fs.FS { return fsys }))

	pkgs, err := d.Discover(context.Background(), "/tree")
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	want := []string{"A", "B", "C", "modules/M1", "modules/M2"}
	if diff := cmp.Diff(want, relPaths(pkgs)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	for i, p := range pkgs {
		wantRole := RoleCore
		if i >= 3 {
			wantRole = RoleModule
		}
		if p.Role != wantRole {
			t.Errorf("pkgs[%d].Role = %q, want %q", i, p.Role, wantRole)
		}
	}
	if got, want := pkgs[0].Dir, filepath.Join("/tree", "src", "A"); got != want {
		t.Errorf("Dir = %q, want %q", got, want)
	}
}

func TestDiscover_ZeroModules(t *testing.T) {
	t.Parallel()

	fsys := mapFS("A", "modules")
	d := New(testLayout("A"), WithFS(func(string) fs.FS { return fsys }))

	pkgs, err := d.Discover(context.Background(), "/tree")
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if diff := cmp.Diff([]string{"A"}, relPaths(pkgs)); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_MissingCoreListsAll(t *testing.T) {
	t.Parallel()

	fsys := mapFS("B", "modules/M1")
	d := New(testLayout("A", "B", "C"), WithFS(func(string) fs.FS { return fsys }))

	_, err := d.Discover(context.Background(), "/tree")
	if !errors.Is(err, ErrCorePackagesMissing) {
		t.Fatalf("Discover() error = %v, want ErrCorePackagesMissing", err)
	}
	var derr *DiscoveryError
	if !errors.As(err, &derr) {
		t.Fatalf("error should be *DiscoveryError, got %T", err)
	}
	if diff := cmp.Diff([]string{"A", "C"}, derr.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_FilesAndHiddenAreNotModules(t *testing.T) {
	t.Parallel()

	fsys := mapFS("A", "modules/M1", "modules/.cache")
	fsys["modules/README"] = &fstest.MapFile{Data: []byte("not a package")}
	d := New(testLayout("A"), WithFS(func(string) fs.FS { return fsys }))

	pkgs, err := d.Discover(context.Background(), "/tree")
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "modules/M1"}, relPaths(pkgs)); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_ModuleThatIsCoreIsReportedOnce(t *testing.T) {
	t.Parallel()

	fsys := mapFS("modules/core", "modules/extra")
	d := New(testLayout("modules/core"), WithFS(func(string) fs.FS { return fsys }))

	pkgs, err := d.Discover(context.Background(), "/tree")
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}
	if diff := cmp.Diff([]string{"modules/core", "modules/extra"}, relPaths(pkgs)); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
	if pkgs[0].Role != RoleCore {
		t.Errorf("duplicate should keep the core role, got %q", pkgs[0].Role)
	}
}

func TestDiscover_InvalidPattern(t *testing.T) {
	t.Parallel()

	layout := testLayout("A")
	layout.ModulePattern = "modules/[a-"
	fsys := mapFS("A")

	_, err := New(layout, WithFS(func(string) fs.FS { return fsys })).Discover(context.Background(), "/tree")
	if !errors.Is(err, ErrInvalidPattern) {
		t.Fatalf("Discover() error = %v, want ErrInvalidPattern", err)
	}
}

func TestDiscover_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(testLayout("A")).Discover(ctx, t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Discover() error = %v, want context.Canceled", err)
	}
}

func TestDiscover_OnDisk(t *testing.T) {
	t.Parallel()

	tree := t.TempDir()
	src := filepath.Join(tree, "src")
	// Created in reverse order so readdir order differs from the sorted result.
	testutil.WritePackage(t, src, "modules/M2", "mod-two")
	testutil.WritePackage(t, src, "modules/M1", "mod-one")
	testutil.WritePackage(t, src, "A", "core-a")

	pkgs, err := New(testLayout("A")).Discover(context.Background(), tree)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	var names []string
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"core-a", "mod-one", "mod-two"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}
