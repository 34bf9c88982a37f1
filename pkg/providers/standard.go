package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"unicode"
)

// callStandard drives any catalog-listed provider: resolve model and base
// URL, apply the format group's auth scheme, render the body template, and
// run the shared exchange.
func (c *Client) callStandard(ctx context.Context, target Options, tc TypeConfig, prompt string) Result {
	model := modelOf(strings.ToLower(strings.TrimSpace(target.ID)))
	if model == "" {
		model = tc.DefaultModel
	}

	apiKey := target.Config.APIKey
	if apiKey == "" {
		for _, env := range tc.EnvKeys {
			if v := os.Getenv(env); v != "" {
				apiKey = v
				break
			}
		}
	}
	needsKey := tc.AuthType != "none" && tc.AuthType != "query_param"
	if needsKey && len(tc.EnvKeys) > 0 && apiKey == "" {
		return failure(
			fmt.Sprintf("%s API key required. Set %s.", titleCase(tc.Name), tc.EnvKeys[0]),
			fmt.Sprintf("Set the %s environment variable", tc.EnvKeys[0]),
			"Or provide api_key in config",
		)
	}

	baseURL := target.Config.APIBaseURL
	if baseURL == "" && tc.BaseURLEnv != "" {
		baseURL = os.Getenv(tc.BaseURLEnv)
	}
	if baseURL == "" {
		baseURL = tc.BaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	endpoint := strings.ReplaceAll(tc.Endpoint, "{{model}}", model)
	requestURL := baseURL + endpoint
	if tc.AuthType == "query_param" && apiKey != "" {
		param := tc.AuthParamName
		if param == "" {
			param = "key"
		}
		requestURL += "?" + param + "=" + url.QueryEscape(apiKey)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if apiKey != "" {
		switch tc.AuthType {
		case "bearer":
			headers["Authorization"] = "Bearer " + apiKey
		case "x-api-key":
			headers["x-api-key"] = apiKey
		case "token":
			headers["Authorization"] = "Token " + apiKey
		}
	}
	for k, v := range tc.ExtraHeaders {
		headers[k] = v
	}
	for k, v := range target.Config.Headers {
		headers[k] = v
	}

	body, err := buildStandardBody(tc, target.Config, model, prompt)
	if err != nil {
		return failure(fmt.Sprintf("Error: %v", err))
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return failure(fmt.Sprintf("Error: %v", err))
	}

	result := c.execute(ctx, "POST", requestURL, headers, payload, c.timeoutFor(target), tc.ResponsePath)
	if result.Success && result.Response != nil {
		if result.Response.Metadata == nil {
			result.Response.Metadata = make(map[string]any)
		}
		result.Response.Metadata["model"] = model
		result.Response.Metadata["provider"] = tc.Name
		if cost, ok := c.catalog.Cost(model, result.Response.TokenUsage); ok {
			result.Response.Cost = cost
		}
	}
	return result
}

// buildStandardBody renders the catalog's request template with the model
// and JSON-escaped prompt, or falls back to an OpenAI-shaped default. The
// target's temperature and max_tokens are injected only where the template
// left them unset.
func buildStandardBody(tc TypeConfig, cfg Config, model, prompt string) (map[string]any, error) {
	var body map[string]any
	if tc.RequestBodyTemplate != nil {
		rendered, err := renderTemplate(tc.RequestBodyTemplate, model, prompt)
		if err != nil {
			return nil, err
		}
		body = rendered
	} else {
		body = map[string]any{
			"model":      model,
			"messages":   []any{map[string]any{"role": "user", "content": prompt}},
			"max_tokens": 1000,
		}
	}

	if cfg.Temperature != nil {
		if _, present := body["temperature"]; !present {
			body["temperature"] = *cfg.Temperature
		}
	}
	if cfg.MaxTokens != nil {
		if _, present := body["max_tokens"]; !present {
			body["max_tokens"] = *cfg.MaxTokens
		}
		if gc := asMap(body["generationConfig"]); gc != nil {
			if _, present := gc["maxOutputTokens"]; !present {
				gc["maxOutputTokens"] = *cfg.MaxTokens
			}
		}
	}
	return body, nil
}

// renderTemplate substitutes {{model}} and {{prompt}} through the JSON
// form of the template, so placeholders nested anywhere in the structure
// are reached. The prompt is JSON-escaped to survive quoting.
func renderTemplate(template map[string]any, model, prompt string) (map[string]any, error) {
	encoded, err := json.Marshal(template)
	if err != nil {
		return nil, err
	}
	rendered := strings.ReplaceAll(string(encoded), "{{model}}", model)
	rendered = strings.ReplaceAll(rendered, "{{prompt}}", jsonEscape(prompt))

	var body map[string]any
	if err := json.Unmarshal([]byte(rendered), &body); err != nil {
		return nil, fmt.Errorf("invalid request body template: %w", err)
	}
	return body, nil
}

// jsonEscape returns the JSON string encoding of s without the surrounding
// quotes, for splicing into an already-quoted template slot.
func jsonEscape(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(encoded[1 : len(encoded)-1])
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
