// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the Go struct JSON tags and the CUE schema field names
// aligned, so a renamed key cannot be silently ignored at load time.

// extractCUEFields returns the top-level field names of a CUE struct definition.
func extractCUEFields(t *testing.T, val cue.Value) map[string]bool {
	t.Helper()

	fields := make(map[string]bool)

	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}

	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType().IsHidden() || sel.IsDefinition() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = true
	}

	return fields
}

// extractGoJSONTags returns the JSON tag names of a struct's exported fields.
func extractGoJSONTags(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()

	if typ.Kind() != reflect.Struct {
		t.Fatalf("expected struct type, got %s", typ.Kind())
	}

	fields := make(map[string]bool)
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = true
	}

	return fields
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()

	schema := cuecontext.New().CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile CUE schema: %v", schema.Err())
	}

	tests := []struct {
		definition string
		typ        reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#LayoutConfig", reflect.TypeFor[LayoutConfig]()},
		{"#EnvironmentConfig", reflect.TypeFor[EnvironmentConfig]()},
		{"#LauncherConfig", reflect.TypeFor[LauncherConfig]()},
		{"#CompletionConfig", reflect.TypeFor[CompletionConfig]()},
		{"#RemoteConfig", reflect.TypeFor[RemoteConfig]()},
		{"#VerifyConfig", reflect.TypeFor[VerifyConfig]()},
		{"#UIConfig", reflect.TypeFor[UIConfig]()},
	}

	for _, tt := range tests {
		t.Run(tt.definition, func(t *testing.T) {
			t.Parallel()

			def := schema.LookupPath(cue.ParsePath(tt.definition))
			if def.Err() != nil {
				t.Fatalf("failed to lookup CUE definition %s: %v", tt.definition, def.Err())
			}
			cueFields := extractCUEFields(t, def)
			goFields := extractGoJSONTags(t, tt.typ)

			for field := range cueFields {
				if !goFields[field] {
					t.Errorf("CUE field %q not found in Go struct %s", field, tt.typ.Name())
				}
			}
			for field := range goFields {
				if !cueFields[field] {
					t.Errorf("Go JSON tag %q not found in CUE %s", field, tt.definition)
				}
			}
		})
	}
}
