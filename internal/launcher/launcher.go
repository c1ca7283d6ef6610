// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/modinstall/modinstall/internal/hostpkg"
	"github.com/modinstall/modinstall/pkg/fspath"

	"mvdan.cc/sh/v3/syntax"
)

// scriptMode is the permission of the written launcher.
const scriptMode = 0o755

var (
	// ErrLauncherWrite is the sentinel matched by every LauncherWriteError.
	ErrLauncherWrite = errors.New("launcher write failed")
	// ErrInvalidEntryPoint is returned for an entry point that is not a dotted module path.
	ErrInvalidEntryPoint = errors.New("invalid entry point")

	entryPointRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

type (
	// Script is a launcher written to disk.
	Script struct {
		Path        string `json:"path" yaml:"path"`
		CommandName string `json:"command_name" yaml:"command_name"`
		Body        string `json:"-" yaml:"-"`
	}

	// Synthesizer renders and writes launchers.
	Synthesizer struct {
		// CommandName is the launcher file name.
		CommandName string
		// EntryPoint is the module run with `python -m`.
		EntryPoint string
		Logger     *slog.Logger
	}

	// LauncherWriteError is returned when the launcher cannot be rendered or written.
	LauncherWriteError struct {
		Path string
		Err  error
	}
)

// Render returns the launcher body for env. The interpreter is referenced by
// its absolute path, so the launcher works from any working directory.
func (s *Synthesizer) Render(env hostpkg.Environment) (string, error) {
	if !entryPointRe.MatchString(s.EntryPoint) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryPoint, s.EntryPoint)
	}
	interp, err := filepath.Abs(env.Interpreter)
	if err != nil {
		return "", fmt.Errorf("resolve interpreter: %w", err)
	}
	quoted, err := syntax.Quote(interp, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quote interpreter path: %w", err)
	}

	body := fmt.Sprintf("#!/usr/bin/env bash\nexec %s -m %s \"$@\"\n", quoted, s.EntryPoint)
	if _, err := syntax.NewParser().Parse(strings.NewReader(body), s.CommandName); err != nil {
		return "", fmt.Errorf("generated launcher does not parse: %w", err)
	}
	return body, nil
}

// Synthesize writes the launcher to binDir/CommandName, replacing any
// previous launcher.
func (s *Synthesizer) Synthesize(env hostpkg.Environment, binDir string) (*Script, error) {
	path, err := filepath.Abs(filepath.Join(binDir, s.CommandName))
	if err != nil {
		return nil, &LauncherWriteError{Path: filepath.Join(binDir, s.CommandName), Err: err}
	}

	body, err := s.Render(env)
	if err != nil {
		return nil, &LauncherWriteError{Path: path, Err: err}
	}
	if err := fspath.WriteFileAtomic(path, []byte(body), scriptMode); err != nil {
		return nil, &LauncherWriteError{Path: path, Err: err}
	}

	s.logger().Info("wrote launcher", "path", path)
	return &Script{Path: path, CommandName: s.CommandName, Body: body}, nil
}

func (s *Synthesizer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (e *LauncherWriteError) Error() string {
	return fmt.Sprintf("write launcher %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LauncherWriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrLauncherWrite.
func (e *LauncherWriteError) Is(target error) bool { return target == ErrLauncherWrite }
