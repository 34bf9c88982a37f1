package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const difyDefaultBaseURL = "https://api.dify.ai/v1"

// callDify talks to a Dify application. IDs containing "workflow" hit the
// workflow-run endpoint with the prompt as an input variable; everything
// else goes through chat-messages. Responses stream, so the SSE parser
// reassembles the answer.
func (c *Client) callDify(ctx context.Context, target Options, prompt string) Result {
	cfg := target.Config
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("DIFY_API_KEY")
	}
	if apiKey == "" {
		return failure(
			"Dify API key required. Set DIFY_API_KEY environment variable.",
			"Set DIFY_API_KEY environment variable",
			"Or provide api_key in config",
		)
	}

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = os.Getenv("DIFY_API_BASE")
	}
	if baseURL == "" {
		baseURL = difyDefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	user := cfg.extraString("user", "agent-user")
	inputs := asMap(cfg.Extra["inputs"])
	if inputs == nil {
		inputs = map[string]any{}
	}

	var endpoint string
	var body map[string]any
	if strings.Contains(strings.ToLower(target.ID), "workflow") {
		endpoint = "/workflows/run"
		if _, present := inputs["query"]; !present {
			inputs["query"] = prompt
		}
		body = map[string]any{
			"inputs":        inputs,
			"response_mode": "streaming",
			"user":          user,
		}
	} else {
		endpoint = "/chat-messages"
		body = map[string]any{
			"inputs":        inputs,
			"query":         prompt,
			"response_mode": "streaming",
			"user":          user,
		}
		if conversationID := cfg.extraString("conversation_id", ""); conversationID != "" {
			body["conversation_id"] = conversationID
		}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return failure(fmt.Sprintf("Error: %v", err))
	}

	result := c.execute(ctx, "POST", baseURL+endpoint, headers, payload, c.timeoutFor(target), "answer")
	if result.Response != nil {
		if result.Response.Metadata == nil {
			result.Response.Metadata = make(map[string]any)
		}
		result.Response.Metadata["provider"] = "dify"
		result.Response.Metadata["endpoint"] = endpoint
		if raw := asMap(result.Response.Raw); raw != nil {
			if id, ok := raw["conversation_id"].(string); ok {
				result.Response.SessionID = id
			}
		}
	}
	return result
}
