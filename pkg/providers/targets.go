package providers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadTargets reads a provider config file (YAML or JSON) and returns the
// targets it lists. The list may live under a "providers" or "targets" key
// or form the whole document. Three entry shapes are accepted: a bare ID
// string, a full {id, label, delay, config} record, and a single-key map
// whose key is the ID and whose value holds the rest.
func LoadTargets(path string) ([]Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var document any
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &document)
	} else {
		err = yaml.Unmarshal(data, &document)
	}
	if err != nil {
		return nil, fmt.Errorf("configuration file parsing failed: %w", err)
	}

	entries, err := targetEntries(document)
	if err != nil {
		return nil, err
	}

	targets := make([]Options, 0, len(entries))
	for i, entry := range entries {
		target, err := decodeTarget(entry)
		if err != nil {
			return nil, fmt.Errorf("provider entry %d: %w", i, err)
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// UpdateConfig overlays override onto base and returns the merged target.
// Top-level fields and scalar config fields win when the override sets them;
// the headers and extra maps merge key-by-key so a runtime override can add
// one header without restating the rest. Neither input is mutated.
func UpdateConfig(base, override Options) Options {
	merged := base

	if override.ID != "" {
		merged.ID = override.ID
	}
	if override.Label != "" {
		merged.Label = override.Label
	}
	if override.Delay > 0 {
		merged.Delay = override.Delay
	}

	oc := override.Config
	if oc.URL != "" {
		merged.Config.URL = oc.URL
	}
	if oc.Endpoint != "" {
		merged.Config.Endpoint = oc.Endpoint
	}
	if oc.Method != "" {
		merged.Config.Method = oc.Method
	}
	if oc.Body != nil {
		merged.Config.Body = oc.Body
	}
	if oc.APIKey != "" {
		merged.Config.APIKey = oc.APIKey
	}
	if oc.APIBaseURL != "" {
		merged.Config.APIBaseURL = oc.APIBaseURL
	}
	if oc.Model != "" {
		merged.Config.Model = oc.Model
	}
	if oc.Temperature != nil {
		merged.Config.Temperature = oc.Temperature
	}
	if oc.MaxTokens != nil {
		merged.Config.MaxTokens = oc.MaxTokens
	}
	if oc.TransformResponse != "" {
		merged.Config.TransformResponse = oc.TransformResponse
	}
	if oc.TimeoutMS > 0 {
		merged.Config.TimeoutMS = oc.TimeoutMS
	}
	if len(oc.Headers) > 0 {
		headers := make(map[string]string, len(base.Config.Headers)+len(oc.Headers))
		for k, v := range base.Config.Headers {
			headers[k] = v
		}
		for k, v := range oc.Headers {
			headers[k] = v
		}
		merged.Config.Headers = headers
	}
	if len(oc.Extra) > 0 {
		extra := make(map[string]any, len(base.Config.Extra)+len(oc.Extra))
		for k, v := range base.Config.Extra {
			extra[k] = v
		}
		for k, v := range oc.Extra {
			extra[k] = v
		}
		merged.Config.Extra = extra
	}

	return merged
}

func targetEntries(document any) ([]any, error) {
	switch doc := document.(type) {
	case []any:
		return doc, nil
	case map[string]any:
		for _, key := range []string{"providers", "targets"} {
			if list, ok := doc[key].([]any); ok {
				return list, nil
			}
		}
		return nil, fmt.Errorf("no 'providers' or 'targets' list found in configuration file")
	default:
		return nil, fmt.Errorf("configuration file must contain a provider list")
	}
}

func decodeTarget(entry any) (Options, error) {
	switch value := entry.(type) {
	case string:
		return Options{ID: value}, nil
	case map[string]any:
		if _, hasID := value["id"]; hasID {
			return decodeOptions(value)
		}
		// Single-key form: the key is the ID, the value the rest.
		if len(value) == 1 {
			for id, rest := range value {
				body, ok := rest.(map[string]any)
				if !ok {
					return Options{ID: id}, nil
				}
				target, err := decodeOptions(body)
				if err != nil {
					return Options{}, err
				}
				target.ID = id
				return target, nil
			}
		}
		return Options{}, fmt.Errorf("missing 'id'")
	default:
		return Options{}, fmt.Errorf("unsupported entry type %T", entry)
	}
}

// decodeOptions maps a raw entry onto Options. Key matching is forgiving:
// api_key, apiKey, and APIKEY all land on the same field, so configs
// written for either naming convention load unchanged.
func decodeOptions(raw map[string]any) (Options, error) {
	var target Options
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &target,
		TagName:          "yaml",
		MatchName:        looseKeyMatch,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Options{}, err
	}
	return target, nil
}

func looseKeyMatch(mapKey, fieldName string) bool {
	normalize := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(s, "_", ""), "-", ""))
	}
	return normalize(mapKey) == normalize(fieldName)
}
