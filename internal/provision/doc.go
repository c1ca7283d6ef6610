// SPDX-License-Identifier: MPL-2.0

// Package provision creates the isolated runtime environment that hosts the
// installed application.
//
// The main entry point is Provisioner.Create. A complete environment already
// present at the target is reused untouched, so re-running an install never
// recreates the interpreter:
//
//	p := provision.New(hostpkg.NewPip("python3", nil, nil), nil)
//	env, err := p.Create(ctx, "/opt/az/libexec")
package provision
