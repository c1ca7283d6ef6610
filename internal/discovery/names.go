// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"path"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// setupNameRe matches the name keyword of a setup() call.
var setupNameRe = regexp.MustCompile(`(?m)\bname\s*=\s*['"]([^'"]+)['"]`)

type pyproject struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
}

// resolveName returns the distribution name of the package at rel: the
// pyproject.toml [project] name, the setup.py name literal, or the directory
// base name, whichever is found first.
func resolveName(l Lister, rel string) string {
	if data, err := l.ReadFile(path.Join(rel, "pyproject.toml")); err == nil {
		var meta pyproject
		if toml.Unmarshal(data, &meta) == nil && strings.TrimSpace(meta.Project.Name) != "" {
			return strings.TrimSpace(meta.Project.Name)
		}
	}
	if data, err := l.ReadFile(path.Join(rel, "setup.py")); err == nil {
		if m := setupNameRe.FindSubmatch(data); m != nil {
			return string(m[1])
		}
	}
	return path.Base(rel)
}
