package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentscan/agentscan/pkg/config"
	"github.com/agentscan/agentscan/pkg/httpclient"
	"github.com/agentscan/agentscan/pkg/observability"
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	config     config.LLMConfig
	httpClient *httpclient.Client
}

type ChatRequest struct {
	Model               string    `json:"model"`
	Messages            []Message `json:"messages"`
	Temperature         float64   `json:"temperature"`
	MaxTokens           *int      `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int      `json:"max_completion_tokens,omitempty"`
	Stream              bool      `json:"stream"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Usage   Usage     `json:"usage"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func NewClient(cfg config.LLMConfig) *Client {
	httpClient := httpclient.New(
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
	)

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

func (c *Client) Model() string {
	return c.config.Model
}

// Chat sends the full history and returns the assistant's text.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	tracer := observability.GetTracer("agentscan.llm")
	ctx, span := tracer.Start(ctx, observability.SpanLLMRequest,
		trace.WithAttributes(
			attribute.String(observability.AttrLLMModel, c.config.Model),
		),
	)
	defer span.End()

	request := c.buildRequest(messages)

	response, err := c.makeRequest(ctx, request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	if response.Error != nil {
		apiErr := fmt.Errorf("API error: %s", response.Error.Message)
		span.RecordError(apiErr)
		span.SetStatus(codes.Error, response.Error.Message)
		return "", apiErr
	}

	if len(response.Choices) == 0 {
		noChoiceErr := fmt.Errorf("no response choices returned")
		span.RecordError(noChoiceErr)
		span.SetStatus(codes.Error, "no choices")
		return "", noChoiceErr
	}

	span.SetAttributes(
		attribute.Int(observability.AttrLLMTokensInput, response.Usage.PromptTokens),
		attribute.Int(observability.AttrLLMTokensOutput, response.Usage.CompletionTokens),
	)
	span.SetStatus(codes.Ok, "")

	return response.Choices[0].Message.Content, nil
}

func (c *Client) buildRequest(messages []Message) ChatRequest {
	model := c.config.Model
	reasoning := isReasoningModel(model)

	// Reasoning models reject temperature overrides and use
	// max_completion_tokens instead of max_tokens.
	var temperature float64
	if reasoning {
		temperature = 1.0
	} else if c.config.Temperature != nil {
		temperature = *c.config.Temperature
	}

	request := ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	}

	if c.config.MaxTokens > 0 {
		maxTokens := c.config.MaxTokens
		if reasoning {
			request.MaxCompletionTokens = &maxTokens
		} else {
			request.MaxTokens = &maxTokens
		}
	}

	return request
}

func isReasoningModel(model string) bool {
	modelLower := strings.ToLower(model)
	if modelLower == "o1" || modelLower == "o3" || modelLower == "o4" || modelLower == "gpt-5" {
		return true
	}
	for _, prefix := range []string{"o1-", "o3-", "o4-", "gpt-5-"} {
		if strings.HasPrefix(modelLower, prefix) {
			return true
		}
	}
	return false
}

// parseErrorResponse extracts error information from API error responses.
func parseErrorResponse(body []byte) *APIError {
	if len(body) == 0 {
		return nil
	}
	var errorResp struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		return &errorResp.Error
	}
	return nil
}

func (c *Client) makeRequest(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/chat/completions", bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(requestBody)), nil
	}

	req.Header.Set("Content-Type", "application/json")

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	// The HTTP client may return both a response and an error once retries
	// are exhausted; prefer the response body for diagnostics.
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, readErr := io.ReadAll(resp.Body)
			errorBody := string(body)
			if readErr != nil {
				errorBody = fmt.Sprintf("(failed to read error body: %v)", readErr)
			}
			if apiErr := parseErrorResponse(body); apiErr != nil {
				return nil, fmt.Errorf("API request failed with status %d: %s (type: %s, code: %s)",
					resp.StatusCode, apiErr.Message, apiErr.Type, apiErr.Code)
			}
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, errorBody)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("HTTP request failed: no response received")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &response, nil
}
