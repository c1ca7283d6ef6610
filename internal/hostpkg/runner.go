// SPDX-License-Identifier: MPL-2.0

package hostpkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

type (
	// Command is one subprocess invocation.
	Command struct {
		Dir  string
		Name string
		Args []string
		// Env is appended to the current process environment.
		Env []string
	}

	// Runner runs a command to completion and returns its combined output.
	// A command that exits non-zero yields a *CommandError.
	Runner interface {
		Run(ctx context.Context, cmd Command) (string, error)
	}

	// ExecRunner runs commands with os/exec.
	ExecRunner struct {
		// Echo, when set, receives the command output as it is produced.
		Echo io.Writer
	}

	// CommandError describes a failed subprocess.
	CommandError struct {
		Command  Command
		ExitCode int
		Output   string
		Err      error
	}
)

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	if r.Echo != nil {
		out = io.MultiWriter(&buf, r.Echo)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	output := buf.String()
	if err == nil {
		return output, nil
	}

	cerr := &CommandError{Command: c, ExitCode: -1, Output: output, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	return output, cerr
}

// String renders the command as a shell-quoted line.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, s := range append([]string{c.Name}, c.Args...) {
		q, err := syntax.Quote(s, syntax.LangBash)
		if err != nil {
			q = s
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command.String(), e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// NotFound reports whether the executable itself could not be found.
func (e *CommandError) NotFound() bool {
	return errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, os.ErrNotExist)
}

// Tail returns at most the last n non-empty output lines.
func (e *CommandError) Tail(n int) string {
	return Tail(e.Output, n)
}

// Tail returns at most the last n non-empty lines of s.
func Tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}
