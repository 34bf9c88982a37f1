package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// bracedRef matches ${VAR} and ${VAR:-default}; bareRef matches $VAR.
var (
	bracedRef = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(:-([^}]*))?\}`)
	bareRef   = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// expandEnvVars expands ${VAR:-default}, ${VAR}, and $VAR references. An
// unset variable without a default expands to the empty string; a default
// kicks in whenever the variable is unset or empty.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = bracedRef.ReplaceAllStringFunc(s, func(ref string) string {
		groups := bracedRef.FindStringSubmatch(ref)
		value := os.Getenv(groups[1])
		if value == "" && groups[2] != "" {
			return groups[3]
		}
		return value
	})

	return bareRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[1:])
	})
}

// parseValue coerces an expanded string to bool/int/float when it parses as
// one, so `port: ${PORT:-8080}` decodes as a number.
func parseValue(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

// ExpandEnvVarsInData recursively expands environment variable references in
// a decoded YAML/JSON value. Both the scanner config and target provider
// files pass through here before decoding. Only strings that actually
// expanded are type-coerced; untouched values keep their original type.
func ExpandEnvVarsInData(data interface{}) interface{} {
	switch v := data.(type) {
	case string:
		if expanded := expandEnvVars(v); expanded != v {
			return parseValue(expanded)
		}
		return v
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			out[key] = ExpandEnvVarsInData(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = ExpandEnvVarsInData(item)
		}
		return out
	default:
		return v
	}
}

// LoadEnvFiles loads .env.local and .env if present. Missing files are not
// an error; a file that exists but fails to parse is.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}
