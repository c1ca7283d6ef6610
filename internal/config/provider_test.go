// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"testing"
)

func TestProvider_LoadMatchesLoadWithSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `launcher: command_name: "fromfile"`)

	p := NewProvider()
	opts := LoadOptions{ConfigDirPath: dir}

	a, err := p.Load(context.Background(), opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	b, src, err := p.LoadWithSource(context.Background(), opts)
	if err != nil {
		t.Fatalf("LoadWithSource() error: %v", err)
	}
	if src == "" {
		t.Error("LoadWithSource() should report the config file")
	}
	if a.Launcher.CommandName != "fromfile" || b.Launcher.CommandName != "fromfile" {
		t.Errorf("command names = %q, %q, want fromfile", a.Launcher.CommandName, b.Launcher.CommandName)
	}
}
