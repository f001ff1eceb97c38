package engine

import (
	"strings"
	"testing"
)

func TestToolValidateArgs(t *testing.T) {
	tool := Tool{
		Name: "terminal",
		SchemaJSON: `{
			"type": "object",
			"properties": {
				"command": {"type": "string"}
			},
			"required": ["command"]
		}`,
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{
			name:    "valid",
			args:    map[string]any{"command": "npm install"},
			wantErr: false,
		},
		{
			name:    "missing required field",
			args:    map[string]any{},
			wantErr: true,
		},
		{
			name:    "wrong type",
			args:    map[string]any{"command": 42},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tool.ValidateArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "terminal") {
				t.Errorf("validation error %q does not name the tool", err.Error())
			}
		})
	}
}

func TestToolRegistrySchemas(t *testing.T) {
	reg := ToolRegistry{
		"a": {Name: "a", Description: "first", SchemaJSON: `{"type":"object"}`},
		"b": {Name: "b", Description: "second", SchemaJSON: `{"type":"object"}`},
	}

	schemas := reg.Schemas()
	if len(schemas) != 2 {
		t.Fatalf("Schemas() returned %d entries, want 2", len(schemas))
	}
	seen := map[string]bool{}
	for _, s := range schemas {
		seen[s.Name] = true
		if s.JSONSchema == "" {
			t.Errorf("schema for %s has empty JSONSchema", s.Name)
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("Schemas() missing tools: %v", seen)
	}
}
