package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

const (
	cozeCNBaseURL  = "https://api.coze.cn"
	cozeComBaseURL = "https://api.coze.com"
)

// callCoze drives a Coze v3 bot. The ID picks the region ("coze-com" for
// the international API, otherwise the CN endpoint); the bot to address
// must be given as config.extra.bot_id.
func (c *Client) callCoze(ctx context.Context, target Options, prompt string) Result {
	cfg := target.Config
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("COZE_API_KEY")
	}
	if apiKey == "" {
		return failure(
			"Coze API key required. Set COZE_API_KEY environment variable.",
			"Set COZE_API_KEY environment variable",
			"Or provide api_key in config",
		)
	}

	botID := cozeBotID(cfg.Extra)
	if botID == "" {
		return failure(
			"Coze bot_id required. Specify in config.extra.bot_id",
			"Set bot_id in config extra",
		)
	}

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = os.Getenv("COZE_API_BASE")
	}
	if baseURL == "" {
		if strings.Contains(strings.ToLower(target.ID), "coze-com") {
			baseURL = cozeComBaseURL
		} else {
			baseURL = cozeCNBaseURL
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")

	requestURL := baseURL + "/v3/chat"
	if conversationID := cfg.extraString("conversation_id", ""); conversationID != "" {
		requestURL += "?conversation_id=" + url.QueryEscape(conversationID)
	}

	body := map[string]any{
		"bot_id":            botID,
		"user_id":           cfg.extraString("user_id", "agent-user"),
		"stream":            true,
		"auto_save_history": true,
		"additional_messages": []any{map[string]any{
			"role":         "user",
			"content":      prompt,
			"content_type": "text",
		}},
	}
	headers := map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return failure(fmt.Sprintf("Error: %v", err))
	}

	result := c.execute(ctx, "POST", requestURL, headers, payload, c.timeoutFor(target), "")
	if result.Response == nil {
		return result
	}
	if result.Response.Metadata == nil {
		result.Response.Metadata = make(map[string]any)
	}
	result.Response.Metadata["provider"] = "coze"
	result.Response.Metadata["bot_id"] = botID

	raw := asMap(result.Response.Raw)
	if raw == nil {
		return result
	}

	data := asMap(raw["data"])
	if data == nil {
		data = raw
	}
	if id, ok := data["conversation_id"].(string); ok && id != "" {
		result.Response.SessionID = id
	}

	// Non-streamed replies put the transcript in a messages list; pick the
	// bot's answer out of it.
	if messages := asSlice(data["messages"]); len(messages) > 0 {
		var output string
		for _, entry := range messages {
			message := asMap(entry)
			if message == nil {
				continue
			}
			if content, ok := message["content"].(string); ok {
				output = content
				if message["role"] == "assistant" && message["type"] == "answer" {
					break
				}
			}
		}
		if output != "" {
			result.Response.Output = output
		}
	}

	if asNumber(raw["code"]) != 0 {
		msg, _ := raw["msg"].(string)
		if msg == "" {
			msg = "Unknown error"
		}
		result.Success = false
		result.Message = fmt.Sprintf("Coze API error: %s", msg)
		result.Response.Error = msg
	}
	return result
}

// cozeBotID tolerates bot_id given as a string or a number in YAML/JSON.
func cozeBotID(extra map[string]any) string {
	switch v := extra["bot_id"].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
