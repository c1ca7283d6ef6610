// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory when non-empty.
// Both config.cue and the default history database live there.
var configDirOverride string

// SetConfigDirOverride points ConfigDir, and through it the default
// StateDir, at dir. It returns a function restoring the previous value,
// meant to be deferred by tests that must not touch the user's home.
func SetConfigDirOverride(dir string) (restore func()) {
	prev := configDirOverride
	configDirOverride = dir
	return func() { configDirOverride = prev }
}
