// SPDX-License-Identifier: MPL-2.0

package build

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/modinstall/modinstall/internal/discovery"
)

const (
	wheelExt = ".whl"
	sdistExt = ".tar.gz"
)

var separatorRun = regexp.MustCompile(`[-_.]+`)

// Artifact is one built distribution file in the staging directory.
type Artifact struct {
	// Package is the package the artifact was built from. It is zero for
	// artifacts found by Scan.
	Package discovery.Package `json:"package" yaml:"package"`
	Path    string            `json:"path" yaml:"path"`
	// Name is the distribution name parsed from the file name.
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// NormalizeName returns the canonical form of a distribution name: runs of
// "-", "_" and "." collapse to a single "-" and letters are lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(separatorRun.ReplaceAllString(name, "-"))
}

// ParseFilename extracts the distribution name and version from a wheel or
// source archive file name.
func ParseFilename(file string) (name, version string, ok bool) {
	switch {
	case strings.HasSuffix(file, wheelExt):
		// {name}-{version}(-{build})?-{python}-{abi}-{platform}.whl
		parts := strings.Split(strings.TrimSuffix(file, wheelExt), "-")
		if len(parts) != 5 && len(parts) != 6 {
			return "", "", false
		}
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	case strings.HasSuffix(file, sdistExt):
		base := strings.TrimSuffix(file, sdistExt)
		i := strings.LastIndex(base, "-")
		if i <= 0 || i == len(base)-1 {
			return "", "", false
		}
		return base[:i], base[i+1:], true
	default:
		return "", "", false
	}
}

// Scan returns the artifacts in dir sorted by path. Files that are not
// recognizable distributions are ignored.
func Scan(dir string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan staging directory: %w", err)
	}

	var out []Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, version, ok := ParseFilename(e.Name())
		if !ok {
			continue
		}
		out = append(out, Artifact{Path: filepath.Join(dir, e.Name()), Name: name, Version: version})
	}
	slices.SortFunc(out, func(a, b Artifact) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}
