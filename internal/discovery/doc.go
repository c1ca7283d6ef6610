// SPDX-License-Identifier: MPL-2.0

// Package discovery locates the buildable package directories of a source tree.
//
// A source tree holds a fixed, ordered set of core packages and an open-ended
// set of command modules matched by a doublestar glob. Discover returns the
// core packages first, in configured order, followed by the modules sorted
// lexically by their relative path. The first core package is the primary
// package installed by name.
//
// File organization:
//   - discovery.go: Discoverer, Package and DiscoveryError
//   - lister.go: directory listing over an fs.FS
//   - names.go: distribution name resolution (pyproject.toml, setup.py)
package discovery
