package providers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// transformTokenPattern splits a transform expression into path segments:
// bracketed list indexes and dot-separated keys.
var transformTokenPattern = regexp.MustCompile(`\[\d+\]|[^.\[\]]+`)

// extractOutput turns a decoded response body into the assistant text. A
// transform expression, when given, takes precedence; otherwise the common
// response shapes are probed in order (OpenAI choices, Anthropic content
// blocks, Google candidates, then generic message/text/result fields).
func extractOutput(raw any, transform string) string {
	if transform != "" {
		if v := applyTransform(raw, transform); v != nil {
			return stringify(v)
		}
	}

	body, ok := raw.(map[string]any)
	if !ok {
		if raw == nil {
			return ""
		}
		return stringify(raw)
	}

	// OpenAI style: choices[0].message.content or choices[0].text.
	if choices := asSlice(body["choices"]); len(choices) > 0 {
		if choice := asMap(choices[0]); choice != nil {
			if message := asMap(choice["message"]); message != nil {
				if content, ok := message["content"].(string); ok {
					return content
				}
			}
			if text, ok := choice["text"].(string); ok {
				return text
			}
		}
	}

	// Anthropic style: content is a list of typed blocks.
	if content, present := body["content"]; present {
		if blocks := asSlice(content); len(blocks) > 0 {
			if block := asMap(blocks[0]); block != nil {
				if text, ok := block["text"].(string); ok {
					return text
				}
			}
		}
		if text, ok := content.(string); ok {
			return text
		}
		return stringify(content)
	}

	// Google style: candidates[0].content.parts[0].text.
	if candidates := asSlice(body["candidates"]); len(candidates) > 0 {
		if candidate := asMap(candidates[0]); candidate != nil {
			if content := asMap(candidate["content"]); content != nil {
				if parts := asSlice(content["parts"]); len(parts) > 0 {
					if part := asMap(parts[0]); part != nil {
						if text, ok := part["text"].(string); ok {
							return text
						}
					}
				}
			}
		}
	}

	if message, present := body["message"]; present {
		if m := asMap(message); m != nil {
			if content, ok := m["content"].(string); ok {
				return content
			}
			return stringify(m)
		}
		if s, ok := message.(string); ok {
			return s
		}
		return stringify(message)
	}

	if text, ok := body["text"].(string); ok {
		return text
	}

	for _, key := range []string{"response", "result", "output", "data", "generated_text"} {
		value, present := body[key]
		if !present || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return v
		case map[string]any:
			return stringify(v)
		case []any:
			if len(v) > 0 {
				if first := asMap(v[0]); first != nil {
					if text, ok := first["generated_text"].(string); ok {
						return text
					}
				}
			}
			return stringify(v)
		default:
			return stringify(v)
		}
	}

	return ""
}

// applyTransform evaluates a dotted-path expression ("choices[0].message.
// content", "data.answer") against the decoded body. A leading response/
// json/data prefix is tolerated; a bare prefix selects the whole body. Any
// missing step yields nil.
func applyTransform(raw any, transform string) any {
	expr := strings.TrimSpace(transform)
	for _, prefix := range []string{"response.", "json.", "data."} {
		if strings.HasPrefix(expr, prefix) {
			expr = expr[len(prefix):]
			break
		}
	}

	switch expr {
	case "", "response", "json", "data":
		return raw
	}

	current := raw
	for _, token := range transformTokenPattern.FindAllString(expr, -1) {
		if strings.HasPrefix(token, "[") {
			index, err := strconv.Atoi(token[1 : len(token)-1])
			if err != nil {
				return nil
			}
			list := asSlice(current)
			if list == nil || index < 0 || index >= len(list) {
				return nil
			}
			current = list[index]
			continue
		}
		m := asMap(current)
		if m == nil {
			return nil
		}
		value, ok := m[token]
		if !ok {
			return nil
		}
		current = value
	}
	return current
}

// stringify renders an extracted value: strings pass through, composites
// become JSON.
func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// asNumber widens any numeric JSON/YAML scalar to float64; non-numbers
// read as 0.
func asNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
