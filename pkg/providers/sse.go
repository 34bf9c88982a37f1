package providers

import (
	"encoding/json"
	"strings"
)

// parseSSE reassembles a text/event-stream body into a single response
// object plus any token usage found along the way. Three stream dialects
// are recognized: OpenAI chat chunks (choices/delta), Anthropic events
// (typed content_block_delta / message_delta, which also covers Coze v3
// "answer" events), and Dify message events carrying an "answer" field.
// Anything else, including non-JSON data lines, is accumulated as plain
// text.
func parseSSE(body string) (map[string]any, map[string]any) {
	var parts []string
	var usage map[string]any
	var lastData map[string]any
	var role string
	var conversationID string

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(line[5:])
		if payload == "[DONE]" {
			continue
		}

		var chunk map[string]any
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil || chunk == nil {
			if payload != "" {
				parts = append(parts, payload)
			}
			continue
		}
		lastData = chunk

		if _, present := chunk["choices"]; present {
			if choices := asSlice(chunk["choices"]); len(choices) > 0 {
				if delta := asMap(asMap(choices[0])["delta"]); delta != nil {
					if r, ok := delta["role"].(string); ok && role == "" {
						role = r
					}
					if content, ok := delta["content"].(string); ok {
						parts = append(parts, content)
					}
				}
			}
		} else if eventType, ok := chunk["type"].(string); ok {
			switch eventType {
			case "content_block_delta":
				if delta := asMap(chunk["delta"]); delta != nil {
					if text, ok := delta["text"].(string); ok {
						parts = append(parts, text)
					}
				}
			case "message_delta":
				if u := asMap(chunk["usage"]); len(u) > 0 {
					usage = u
				}
			case "answer":
				if text, ok := chunk["content"].(string); ok && text != "" {
					parts = append(parts, text)
				}
			}
		} else if answer, present := chunk["answer"]; present {
			if text, ok := answer.(string); ok {
				parts = append(parts, text)
			}
		}

		if u := asMap(chunk["usage"]); len(u) > 0 {
			usage = u
		}
		if id, ok := chunk["conversation_id"].(string); ok && id != "" {
			conversationID = id
		}
	}

	content := strings.Join(parts, "")
	response := reconstructSSE(content, lastData, usage, role)
	if conversationID != "" {
		response["conversation_id"] = conversationID
	}
	return response, usage
}

// reconstructSSE shapes the accumulated stream back into the non-streaming
// response layout the extraction chain understands.
func reconstructSSE(content string, lastData, usage map[string]any, role string) map[string]any {
	if lastData != nil {
		if _, present := lastData["choices"]; present {
			if role == "" {
				role = "assistant"
			}
			var finishReason any
			if choices := asSlice(lastData["choices"]); len(choices) > 0 {
				if choice := asMap(choices[0]); choice != nil {
					finishReason = choice["finish_reason"]
				}
			}
			response := map[string]any{
				"choices": []any{map[string]any{
					"message":       map[string]any{"role": role, "content": content},
					"finish_reason": finishReason,
				}},
				"model": lastData["model"],
				"id":    lastData["id"],
			}
			if usage != nil {
				response["usage"] = usage
			}
			return response
		}
		if _, present := lastData["type"]; present {
			response := map[string]any{
				"content": []any{map[string]any{"type": "text", "text": content}},
				"role":    "assistant",
				"model":   lastData["model"],
				"id":      lastData["id"],
			}
			if usage != nil {
				response["usage"] = usage
			}
			return response
		}
	}

	response := map[string]any{
		"content": content,
		"raw_sse": true,
	}
	if usage != nil {
		response["usage"] = usage
	}
	return response
}
