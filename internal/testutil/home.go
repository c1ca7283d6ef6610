// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"testing"

	"github.com/modinstall/modinstall/pkg/platform"
)

// SetHomeDir points the platform home variable (USERPROFILE on Windows,
// HOME elsewhere) at dir until the test ends.
func SetHomeDir(t testing.TB, dir string) {
	t.Helper()

	if runtime.GOOS == platform.Windows {
		t.Setenv("USERPROFILE", dir)
		return
	}
	t.Setenv("HOME", dir)
}
