package providers

import "testing"

func TestApplyTransform(t *testing.T) {
	body := map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": "hi"}},
		},
		"answer": "direct",
		"meta":   map[string]any{"nested": map[string]any{"deep": float64(3)}},
	}

	tests := []struct {
		name      string
		transform string
		want      any
	}{
		{"indexed path", "choices[0].message.content", "hi"},
		{"response prefix stripped", "response.answer", "direct"},
		{"json prefix stripped", "json.answer", "direct"},
		{"data prefix stripped", "data.answer", "direct"},
		{"whole body keywords", "response", body},
		{"missing key", "nope.deeper", nil},
		{"index out of range", "choices[5].message", nil},
		{"deep nesting", "meta.nested.deep", float64(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyTransform(body, tt.transform)
			switch want := tt.want.(type) {
			case nil:
				if got != nil {
					t.Errorf("applyTransform(%q) = %v, want nil", tt.transform, got)
				}
			case map[string]any:
				if asMap(got) == nil {
					t.Errorf("applyTransform(%q) = %v, want whole body", tt.transform, got)
				}
			default:
				if got != want {
					t.Errorf("applyTransform(%q) = %v, want %v", tt.transform, got, want)
				}
			}
		})
	}
}

func TestExtractOutputAutoDetect(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{
			name: "openai choices",
			raw: map[string]any{"choices": []any{
				map[string]any{"message": map[string]any{"content": "a"}},
			}},
			want: "a",
		},
		{
			name: "openai legacy text",
			raw: map[string]any{"choices": []any{
				map[string]any{"text": "b"},
			}},
			want: "b",
		},
		{
			name: "anthropic content blocks",
			raw: map[string]any{"content": []any{
				map[string]any{"type": "text", "text": "c"},
			}},
			want: "c",
		},
		{
			name: "plain content string",
			raw:  map[string]any{"content": "d", "raw_sse": true},
			want: "d",
		},
		{
			name: "google candidates",
			raw: map[string]any{"candidates": []any{
				map[string]any{"content": map[string]any{
					"parts": []any{map[string]any{"text": "e"}},
				}},
			}},
			want: "e",
		},
		{
			name: "message object",
			raw:  map[string]any{"message": map[string]any{"content": "f"}},
			want: "f",
		},
		{
			name: "bare text",
			raw:  map[string]any{"text": "g"},
			want: "g",
		},
		{
			name: "generic response field",
			raw:  map[string]any{"response": "h"},
			want: "h",
		},
		{
			name: "generated_text list",
			raw: map[string]any{"generated_text": []any{
				map[string]any{"generated_text": "i"},
			}},
			want: "i",
		},
		{
			name: "data map dumped",
			raw:  map[string]any{"data": map[string]any{"k": "v"}},
			want: `{"k":"v"}`,
		},
		{
			name: "non-object body",
			raw:  "plain",
			want: "plain",
		},
		{
			name: "nothing recognized",
			raw:  map[string]any{"unrelated": true},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractOutput(tt.raw, ""); got != tt.want {
				t.Errorf("extractOutput() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractOutputTransformPrecedence(t *testing.T) {
	raw := map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": "auto"}}},
		"custom":  map[string]any{"path": "explicit"},
	}
	if got := extractOutput(raw, "custom.path"); got != "explicit" {
		t.Errorf("extractOutput() = %q, want explicit", got)
	}

	// A transform that misses falls back to auto-detection.
	if got := extractOutput(raw, "custom.missing"); got != "auto" {
		t.Errorf("extractOutput() fallback = %q, want auto", got)
	}
}

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"nested error message", map[string]any{"error": map[string]any{"message": "boom"}}, "boom"},
		{"string error", map[string]any{"error": "plain failure"}, "plain failure"},
		{"top-level message", map[string]any{"message": "denied"}, "denied"},
		{"nothing", map[string]any{"ok": true}, ""},
		{"not a map", "raw body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractErrorMessage(tt.raw); got != tt.want {
				t.Errorf("extractErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
