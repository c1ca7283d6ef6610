// SPDX-License-Identifier: MPL-2.0

package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// registrationScript sources $1 and prints the completion spec of $2.
const registrationScript = `source "$1" && complete -p "$2"`

// completionSpec is one `complete` registration.
type completionSpec struct {
	options []string
	handler string
}

// completeBuiltins emulates the bash programmable-completion builtins that
// the embedded interpreter does not provide.
type completeBuiltins struct {
	mu    sync.Mutex
	specs map[string]completionSpec
}

func newCompleteBuiltins() *completeBuiltins {
	return &completeBuiltins{specs: make(map[string]completionSpec)}
}

// handler is an interp.ExecHandlers middleware.
func (c *completeBuiltins) handler(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) == 0 {
			return next(ctx, args)
		}
		switch args[0] {
		case "complete":
			return c.complete(ctx, args[1:])
		case "compopt":
			// Only meaningful while a completion is running.
			return nil
		default:
			return next(ctx, args)
		}
	}
}

func (c *completeBuiltins) complete(ctx context.Context, args []string) error {
	hc := interp.HandlerCtx(ctx)

	var (
		spec  completionSpec
		show  bool
		names []string
	)
	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "-p":
			show = true
		case "-o", "-F":
			if i+1 >= len(args) {
				fmt.Fprintf(hc.Stderr, "complete: %s: option requires an argument\n", a)
				return interp.ExitStatus(2)
			}
			i++
			if a == "-o" {
				spec.options = append(spec.options, args[i])
			} else {
				spec.handler = args[i]
			}
		default:
			if strings.HasPrefix(a, "-") {
				fmt.Fprintf(hc.Stderr, "complete: %s: unsupported option\n", a)
				return interp.ExitStatus(2)
			}
			names = append(names, a)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if show {
		status := 0
		for _, name := range names {
			s, ok := c.specs[name]
			if !ok {
				fmt.Fprintf(hc.Stderr, "complete: %s: no completion specification\n", name)
				status = 1
				continue
			}
			fmt.Fprintln(hc.Stdout, s.format(name))
		}
		if status != 0 {
			return interp.ExitStatus(uint8(status))
		}
		return nil
	}

	if spec.handler == "" {
		fmt.Fprintln(hc.Stderr, "complete: only -F registrations are supported")
		return interp.ExitStatus(2)
	}
	for _, name := range names {
		c.specs[name] = spec
	}
	return nil
}

// format renders s the way bash's `complete -p` does.
func (s completionSpec) format(name string) string {
	var sb strings.Builder
	sb.WriteString("complete")
	for _, o := range s.options {
		sb.WriteString(" -o ")
		sb.WriteString(o)
	}
	sb.WriteString(" -F ")
	sb.WriteString(s.handler)
	sb.WriteString(" ")
	sb.WriteString(name)
	return sb.String()
}

// runVirtual runs src in the embedded interpreter with params as positional
// parameters and returns the combined output.
func runVirtual(ctx context.Context, name, src string, params []string, handlers ...func(interp.ExecHandlerFunc) interp.ExecHandlerFunc) (string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(src), name)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}

	var out bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, &out, &out),
		// "--" keeps parameters like "--version" from being read as shell options.
		interp.Params(append([]string{"--"}, params...)...),
	}
	if len(handlers) > 0 {
		opts = append(opts, interp.ExecHandlers(handlers...))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return "", fmt.Errorf("create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return out.String(), fmt.Errorf("%s exited with status %d", name, status)
		}
		return out.String(), fmt.Errorf("run %s: %w", name, err)
	}
	return out.String(), nil
}

// runLauncherVirtual interprets the launcher script itself, so its exec
// line starts the environment interpreter without a host bash.
func runLauncherVirtual(ctx context.Context, launcherPath, probeArg string) (string, error) {
	src, err := os.ReadFile(launcherPath)
	if err != nil {
		return "", fmt.Errorf("read launcher: %w", err)
	}
	return runVirtual(ctx, launcherPath, string(src), []string{probeArg})
}

// registrationVirtual sources the completion script and prints the
// registration of commandName.
func registrationVirtual(ctx context.Context, completionPath, commandName string) (string, error) {
	builtins := newCompleteBuiltins()
	return runVirtual(ctx, "modinstall-verify", registrationScript, []string{completionPath, commandName}, builtins.handler)
}
