// SPDX-License-Identifier: MPL-2.0

package completion

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/modinstall/modinstall/pkg/fspath"
	"github.com/modinstall/modinstall/pkg/platform"
)

// DefaultHandler is the handler function name argcomplete uses.
const DefaultHandler = "_python_argcomplete"

var (
	// ErrCompletionWrite is the sentinel matched by every CompletionWriteError.
	ErrCompletionWrite = errors.New("completion write failed")
	// ErrInvalidCommandName is returned for names unusable as a file and completion target.
	ErrInvalidCommandName = errors.New("invalid command name")
	// ErrInvalidHandler is returned for handler names that are not shell identifiers.
	ErrInvalidHandler = errors.New("invalid handler name")

	commandNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	handlerRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type (
	// Script is a generated completion script.
	Script struct {
		CommandName string `json:"command_name" yaml:"command_name"`
		Handler     string `json:"handler" yaml:"handler"`
		Text        string `json:"-" yaml:"-"`
	}

	// Generator renders and installs completion scripts.
	Generator struct {
		// Handler is the completion function name. Empty means DefaultHandler.
		Handler string
		Logger  *slog.Logger
	}

	// CompletionWriteError is returned when the completion script cannot be written.
	CompletionWriteError struct {
		Path string
		Err  error
	}
)

// ValidateCommandName checks that name can be used as a launcher file name
// and a completion target without quoting, on every platform.
func ValidateCommandName(name string) error {
	if !commandNameRe.MatchString(name) || platform.IsWindowsReservedName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCommandName, name)
	}
	return nil
}

// RegistrationLine returns the exact line that binds handler to commandName.
func RegistrationLine(handler, commandName string) string {
	return fmt.Sprintf("complete -o nospace -F %s %s", handler, commandName)
}

// Generate renders the completion script for commandName. The registration
// line is always the script's last line.
func (g *Generator) Generate(commandName string) (*Script, error) {
	if err := ValidateCommandName(commandName); err != nil {
		return nil, err
	}
	handler := g.handler()
	if !handlerRe.MatchString(handler) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandler, handler)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# bash completion for %s\n\n", commandName)
	fmt.Fprintf(&sb, "%s() {\n", handler)
	sb.WriteString(handlerBody)
	sb.WriteString("}\n")
	sb.WriteString(RegistrationLine(handler, commandName))
	sb.WriteString("\n")

	return &Script{CommandName: commandName, Handler: handler, Text: sb.String()}, nil
}

// Install writes script to dir/<command name>, replacing any previous file,
// and returns the written path.
func (g *Generator) Install(script *Script, dir string) (string, error) {
	path, err := filepath.Abs(filepath.Join(dir, script.CommandName))
	if err != nil {
		return "", &CompletionWriteError{Path: filepath.Join(dir, script.CommandName), Err: err}
	}
	if err := ValidateCommandName(script.CommandName); err != nil {
		return "", &CompletionWriteError{Path: path, Err: err}
	}
	if err := fspath.WriteFileAtomic(path, []byte(script.Text), 0o644); err != nil {
		return "", &CompletionWriteError{Path: path, Err: err}
	}
	g.logger().Info("wrote completion script", "path", path)
	return path, nil
}

func (g *Generator) handler() string {
	if g.Handler == "" {
		return DefaultHandler
	}
	return g.Handler
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

func (e *CompletionWriteError) Error() string {
	return fmt.Sprintf("write completion script %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CompletionWriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCompletionWrite.
func (e *CompletionWriteError) Is(target error) bool { return target == ErrCompletionWrite }

// handlerBody asks the command for completions using the argcomplete
// protocol: the command runs with _ARGCOMPLETE=1 and writes candidates,
// separated by \013, to file descriptor 8.
const handlerBody = `    local IFS=$'\013'
    local SUPPRESS_SPACE=0
    if compopt +o nospace 2> /dev/null; then
        SUPPRESS_SPACE=1
    fi
    COMPREPLY=( $(IFS="$IFS" \
                  COMP_LINE="$COMP_LINE" \
                  COMP_POINT="$COMP_POINT" \
                  COMP_TYPE="$COMP_TYPE" \
                  _ARGCOMPLETE_COMP_WORDBREAKS="$COMP_WORDBREAKS" \
                  _ARGCOMPLETE=1 \
                  _ARGCOMPLETE_SUPPRESS_SPACE=$SUPPRESS_SPACE \
                  "$1" 8>&1 9>&2 1>/dev/null 2>/dev/null) )
    if [[ $? != 0 ]]; then
        unset COMPREPLY
    elif [[ $SUPPRESS_SPACE == 1 ]] && [[ "$COMPREPLY" =~ [=/:]$ ]]; then
        compopt -o nospace
    fi
`
