// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern is returned for a module pattern doublestar cannot parse.
var ErrInvalidPattern = errors.New("invalid module pattern")

// Lister answers directory questions about a source root. Paths are
// slash-separated and relative to the root.
type Lister struct {
	FS fs.FS
}

// IsDir reports whether rel names a directory. Symlinks are followed.
func (l Lister) IsDir(rel string) bool {
	info, err := fs.Stat(l.FS, path.Clean(rel))
	return err == nil && info.IsDir()
}

// Dirs returns the directories matching pattern, sorted lexically.
// Hidden entries are never matched.
func (l Lister) Dirs(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	matches, err := doublestar.Glob(l.FS, pattern, doublestar.WithNoHidden())
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", pattern, err)
	}

	dirs := matches[:0]
	for _, m := range matches {
		if l.IsDir(m) {
			dirs = append(dirs, m)
		}
	}
	slices.Sort(dirs)
	return dirs, nil
}

// ReadFile reads rel from the source root.
func (l Lister) ReadFile(rel string) ([]byte, error) {
	return fs.ReadFile(l.FS, rel)
}
