package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agentscan/agentscan/pkg/config"
)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Model:     "gpt-4o",
		APIKey:    "sk-test-key",
		BaseURL:   baseURL,
		MaxTokens: 256,
		Timeout:   5,
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(testConfig("https://api.openai.com/v1"))

	if client == nil {
		t.Fatal("NewClient() returned nil client")
	}
	if client.Model() != "gpt-4o" {
		t.Errorf("Model() = %v, want gpt-4o", client.Model())
	}
}

func TestClientChatSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test-key" {
			t.Errorf("Expected Bearer token, got %s", auth)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("Expected model gpt-4o, got %s", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("Expected 2 messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != RoleSystem {
			t.Errorf("Expected system role first, got %s", req.Messages[0].Role)
		}
		if req.MaxTokens == nil || *req.MaxTokens != 256 {
			t.Errorf("Expected max_tokens 256, got %v", req.MaxTokens)
		}

		response := ChatResponse{
			Choices: []Choice{
				{
					Message:      Message{Role: RoleAssistant, Content: "Recon complete."},
					FinishReason: "stop",
				},
			},
			Usage: Usage{PromptTokens: 10, CompletionTokens: 3, TotalTokens: 13},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	text, err := client.Chat(context.Background(), []Message{
		SystemMessage("You are a security analyst."),
		UserMessage("Summarize the target."),
	})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil", err)
	}
	if text != "Recon complete." {
		t.Errorf("Chat() = %q, want %q", text, "Recon complete.")
	}
}

func TestClientChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Chat(context.Background(), []Message{UserMessage("hi")})
	if err == nil {
		t.Fatal("Chat() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Chat() error = %v, want status 401 mentioned", err)
	}
	if !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("Chat() error = %v, want API error message included", err)
	}
}

func TestClientChatErrorField(t *testing.T) {
	// Some gateways return 200 with an error payload.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Chat(context.Background(), []Message{UserMessage("hi")})
	if err == nil {
		t.Fatal("Chat() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("Chat() error = %v, want error payload message included", err)
	}
}

func TestClientChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[],"usage":{"prompt_tokens":1,"completion_tokens":0,"total_tokens":1}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.Chat(context.Background(), []Message{UserMessage("hi")})
	if err == nil {
		t.Fatal("Chat() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "no response choices") {
		t.Errorf("Chat() error = %v, want no-choices error", err)
	}
}

func TestClientChatRetriesServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxRetries = 2
	client := NewClient(cfg)

	text, err := client.Chat(context.Background(), []Message{UserMessage("hi")})
	if err != nil {
		t.Fatalf("Chat() error = %v, want nil after retry", err)
	}
	if text != "ok" {
		t.Errorf("Chat() = %q, want ok", text)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestBuildRequest(t *testing.T) {
	temp := 0.3

	tests := []struct {
		name                    string
		model                   string
		temperature             *float64
		wantTemperature         float64
		wantMaxTokens           bool
		wantMaxCompletionTokens bool
	}{
		{
			name:            "standard model",
			model:           "gpt-4o",
			temperature:     &temp,
			wantTemperature: 0.3,
			wantMaxTokens:   true,
		},
		{
			name:                    "reasoning model forces temperature",
			model:                   "o3-mini",
			temperature:             &temp,
			wantTemperature:         1.0,
			wantMaxCompletionTokens: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://localhost")
			cfg.Model = tt.model
			cfg.Temperature = tt.temperature
			client := NewClient(cfg)

			req := client.buildRequest([]Message{UserMessage("hi")})

			if req.Temperature != tt.wantTemperature {
				t.Errorf("Temperature = %v, want %v", req.Temperature, tt.wantTemperature)
			}
			if (req.MaxTokens != nil) != tt.wantMaxTokens {
				t.Errorf("MaxTokens set = %v, want %v", req.MaxTokens != nil, tt.wantMaxTokens)
			}
			if (req.MaxCompletionTokens != nil) != tt.wantMaxCompletionTokens {
				t.Errorf("MaxCompletionTokens set = %v, want %v", req.MaxCompletionTokens != nil, tt.wantMaxCompletionTokens)
			}
		})
	}
}

func TestIsReasoningModel(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-4o", false},
		{"gpt-4o-mini", false},
		{"o1", true},
		{"o1-preview", true},
		{"o3-mini", true},
		{"O3-MINI", true},
		{"gpt-5", true},
		{"gpt-5-mini", true},
		{"gpt-4.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := isReasoningModel(tt.model); got != tt.want {
				t.Errorf("isReasoningModel(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}
