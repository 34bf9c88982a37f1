package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Invocation arguments reach handlers as strings when parsed from the XML
// tool protocol, but batch re-dispatch passes decoded JSON values. These
// readers accept both.

func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

func boolArg(args map[string]any, key string, def bool) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}

// stringListArg reads an array argument: a decoded JSON array, a JSON array
// in string form, or a single bare string. The bool reports presence.
func stringListArg(args map[string]any, key string) ([]string, bool) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, false
	}
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		var parsed []string
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return parsed, true
		}
		if v != "" {
			return []string{v}, true
		}
	}
	return nil, false
}

// floatArg reports whether the raw value parsed cleanly so callers can
// reject malformed input instead of silently defaulting.
func floatArg(args map[string]any, key string, def float64) (float64, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, true
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		if t == "" {
			return def, true
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f, true
		}
		return 0, false
	}
	return 0, false
}
