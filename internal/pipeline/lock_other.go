// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package pipeline

// envLock is the non-Linux stub; concurrent runs are not detected there.
type envLock struct{}

func acquireEnvLock(string) (*envLock, error) {
	return &envLock{}, nil
}

// Release is a no-op on non-Linux platforms.
func (l *envLock) Release() {}
