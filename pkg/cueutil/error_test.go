// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns nil", func(t *testing.T) {
		t.Parallel()
		if err := FormatError(nil, "test.cue"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("non-CUE error is wrapped with filepath", func(t *testing.T) {
		t.Parallel()
		originalErr := errors.New("some error")
		err := FormatError(originalErr, "test.cue")
		if !errors.Is(err, originalErr) {
			t.Errorf("error should wrap the original, got: %v", err)
		}
		if !strings.HasPrefix(err.Error(), "test.cue: ") {
			t.Errorf("error should start with the filepath, got: %v", err)
		}
	})

	t.Run("CUE conflict carries the field path", func(t *testing.T) {
		t.Parallel()
		ctx := cuecontext.New()
		schema := ctx.CompileString(`#C: { layout: { core_packages: [...string] } }`).LookupPath(cue.ParsePath("#C"))
		user := ctx.CompileString(`layout: core_packages: ["ok", 3]`)
		verr := schema.Unify(user).Validate()
		if verr == nil {
			t.Fatal("expected a validation error")
		}
		err := FormatError(verr, "config.cue")
		if !strings.Contains(err.Error(), "layout.core_packages[1]") {
			t.Errorf("error should contain JSON path, got: %v", err)
		}
	})
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     []string
		expected string
	}{
		{nil, ""},
		{[]string{"launcher"}, "launcher"},
		{[]string{"launcher", "command_name"}, "launcher.command_name"},
		{[]string{"layout", "core_packages", "0"}, "layout.core_packages[0]"},
		{[]string{"items", "0", "values", "1"}, "items[0].values[1]"},
		{[]string{"0"}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			if got := formatPath(tt.path); got != tt.expected {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestCheckFileSize(t *testing.T) {
	t.Parallel()

	if err := CheckFileSize(make([]byte, 100), 100, "test.cue"); err != nil {
		t.Errorf("data at exact limit: expected nil, got %v", err)
	}
	if err := CheckFileSize(nil, 100, "test.cue"); err != nil {
		t.Errorf("empty data: expected nil, got %v", err)
	}

	err := CheckFileSize(make([]byte, 101), 100, "test.cue")
	if err == nil {
		t.Fatal("expected error for oversized data")
	}
	for _, want := range []string{"test.cue", "101", "100"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should contain %q, got: %v", want, err)
		}
	}
}
