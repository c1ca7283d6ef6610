// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"os"
	"sync"
)

const (
	// SandboxNone indicates no sandbox environment detected.
	SandboxNone SandboxType = ""
	// SandboxFlatpak indicates a Flatpak sandbox environment.
	SandboxFlatpak SandboxType = "flatpak"
	// SandboxSnap indicates a Snap sandbox environment.
	SandboxSnap SandboxType = "snap"
)

// SandboxType identifies the type of application sandbox, if any.
type SandboxType string

// detected caches the sandbox lookup; it never changes during the process lifetime.
var detected = sync.OnceValue(func() SandboxType {
	return detectSandboxFrom(os.Getenv, func(path string) error {
		_, err := os.Stat(path)
		return err
	})
})

// DetectSandbox returns the sandbox the current process runs in.
// Flatpak is recognized by /.flatpak-info, Snap by $SNAP_NAME.
func DetectSandbox() SandboxType {
	return detected()
}

// HostCommand rewrites name and args so that the command runs on the host
// when modinstall itself runs inside a sandbox: environments must be created
// with the host interpreter, not the one bundled with the sandbox.
func HostCommand(name string, args []string) (string, []string) {
	return hostCommandFor(DetectSandbox(), name, args)
}

func hostCommandFor(st SandboxType, name string, args []string) (string, []string) {
	var spawn string
	var prefix []string
	switch st {
	case SandboxFlatpak:
		spawn, prefix = "flatpak-spawn", []string{"--host"}
	case SandboxSnap:
		spawn, prefix = "snap", []string{"run", "--shell"}
	default:
		return name, args
	}
	full := make([]string, 0, len(prefix)+1+len(args))
	full = append(full, prefix...)
	full = append(full, name)
	full = append(full, args...)
	return spawn, full
}

// detectSandboxFrom performs sandbox detection using the provided lookups.
func detectSandboxFrom(lookupEnv func(string) string, statFile func(string) error) SandboxType {
	// Flatpak takes precedence.
	if err := statFile("/.flatpak-info"); err == nil {
		return SandboxFlatpak
	}
	if lookupEnv("SNAP_NAME") != "" {
		return SandboxSnap
	}
	return SandboxNone
}
