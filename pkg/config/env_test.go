package config

import (
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		envVars map[string]string
		want    string
	}{
		{
			name:  "no variables",
			input: "plain string",
			want:  "plain string",
		},
		{
			name:    "braced variable",
			input:   "${SCAN_TOKEN}",
			envVars: map[string]string{"SCAN_TOKEN": "abc"},
			want:    "abc",
		},
		{
			name:  "braced variable unset",
			input: "${SCAN_TOKEN}",
			want:  "",
		},
		{
			name:  "default used when unset",
			input: "${SCAN_TOKEN:-fallback}",
			want:  "fallback",
		},
		{
			name:    "default ignored when set",
			input:   "${SCAN_TOKEN:-fallback}",
			envVars: map[string]string{"SCAN_TOKEN": "real"},
			want:    "real",
		},
		{
			name:    "bare variable",
			input:   "prefix-$SCAN_TOKEN",
			envVars: map[string]string{"SCAN_TOKEN": "xyz"},
			want:    "prefix-xyz",
		},
		{
			name:    "embedded in url",
			input:   "https://${SCAN_HOST:-localhost}/api",
			envVars: map[string]string{},
			want:    "https://localhost/api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SCAN_TOKEN", "")
			t.Setenv("SCAN_HOST", "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			if got := expandEnvVars(tt.input); got != tt.want {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandEnvVarsInData(t *testing.T) {
	t.Setenv("SCAN_PORT", "8080")
	t.Setenv("SCAN_DEBUG", "true")

	input := map[string]any{
		"port":  "${SCAN_PORT}",
		"debug": "${SCAN_DEBUG}",
		"name":  "static",
		"nested": map[string]any{
			"url": "http://host:${SCAN_PORT}",
		},
		"list": []any{"${SCAN_PORT}", "literal"},
	}

	result, ok := ExpandEnvVarsInData(input).(map[string]any)
	if !ok {
		t.Fatal("expected map result")
	}

	// Expanded scalars are coerced to their natural types.
	if result["port"] != 8080 {
		t.Errorf("port = %v (%T), want 8080 int", result["port"], result["port"])
	}
	if result["debug"] != true {
		t.Errorf("debug = %v, want true", result["debug"])
	}
	if result["name"] != "static" {
		t.Errorf("name = %v, want static unchanged", result["name"])
	}

	nested := result["nested"].(map[string]any)
	if nested["url"] != "http://host:8080" {
		t.Errorf("nested url = %v", nested["url"])
	}

	list := result["list"].([]any)
	if list[0] != 8080 || list[1] != "literal" {
		t.Errorf("list = %v", list)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"true", true},
		{"FALSE", false},
		{"42", 42},
		{"3.14", 3.14},
		{"hello", "hello"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := parseValue(tt.input); got != tt.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v (%T)", tt.input, got, got, tt.want, tt.want)
		}
	}
}
