// SPDX-License-Identifier: MPL-2.0

//go:build linux

package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// envLock holds a non-blocking exclusive flock on "<environment>.lock". The
// kernel releases the lock when the descriptor closes, including on crash,
// so an orphaned lock file is harmless.
type envLock struct {
	file *os.File
}

// acquireEnvLock locks path or fails immediately with ErrEnvironmentLocked.
func acquireEnvLock(path string) (*envLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, ErrEnvironmentLocked)
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}
	return &envLock{file: f}, nil
}

// Release unlocks and closes the lock file. It is safe to call more than once.
func (l *envLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
