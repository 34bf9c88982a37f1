package providers

import (
	"context"
	"encoding/json"
	"strings"
)

// callHTTP probes an arbitrary HTTP endpoint described entirely by the
// target config: URL, method, headers, and a body template with {{prompt}}
// placeholders. Useful for self-hosted agents with bespoke APIs.
func (c *Client) callHTTP(ctx context.Context, target Options, prompt string) Result {
	cfg := target.Config
	if cfg.URL == "" {
		return failure("HTTP URL is required", "Provide config.url for the target endpoint")
	}
	requestURL := cfg.URL + cfg.Endpoint

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = "POST"
	}

	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if headers["Content-Type"] == "" && headers["content-type"] == "" {
		headers["Content-Type"] = "application/json"
	}

	payload := renderCustomBody(cfg.Body, prompt)
	return c.execute(ctx, method, requestURL, headers, payload, c.timeoutFor(target), cfg.TransformResponse)
}

// renderCustomBody substitutes the prompt into the configured body. Maps
// are serialized first so placeholders nested in values are reached; the
// substituted text is sent as-is whether or not it still parses as JSON,
// since bespoke endpoints may expect plain text. Without a body the prompt
// is wrapped in a {"message": ...} envelope.
func renderCustomBody(body any, prompt string) []byte {
	var text string
	switch b := body.(type) {
	case nil:
		encoded, _ := json.Marshal(map[string]any{"message": prompt})
		return encoded
	case string:
		text = b
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			encoded, _ = json.Marshal(map[string]any{"message": prompt})
			return encoded
		}
		text = string(encoded)
	}

	escaped := jsonEscape(prompt)
	if json.Valid([]byte(text)) {
		text = strings.ReplaceAll(text, "{{prompt}}", escaped)
		text = strings.ReplaceAll(text, "{{ prompt }}", escaped)
	} else {
		text = strings.ReplaceAll(text, "{{prompt}}", prompt)
		text = strings.ReplaceAll(text, "{{ prompt }}", prompt)
	}
	return []byte(text)
}
