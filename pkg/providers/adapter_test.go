package providers

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, opts ...ClientOption) *Client {
	t.Helper()
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	return NewClient(catalog, opts...)
}

func TestTypeOfAndModelOf(t *testing.T) {
	tests := []struct {
		id        string
		wantType  string
		wantModel string
	}{
		{"openai:gpt-4o-mini", "openai", "gpt-4o-mini"},
		{"openai", "openai", ""},
		{"anthropic:messages:claude-3-5-haiku", "anthropic", "claude-3-5-haiku"},
		{"openai:chat:gpt-4o", "openai", "gpt-4o"},
		{"deepseek:completion:deepseek-chat", "deepseek", "deepseek-chat"},
	}
	for _, tt := range tests {
		if got := typeOf(tt.id); got != tt.wantType {
			t.Errorf("typeOf(%q) = %q, want %q", tt.id, got, tt.wantType)
		}
		if got := modelOf(tt.id); got != tt.wantModel {
			t.Errorf("modelOf(%q) = %q, want %q", tt.id, got, tt.wantModel)
		}
	}
}

func TestResolveRoutes(t *testing.T) {
	client := testClient(t)
	tests := []struct {
		id   string
		url  string
		want route
	}{
		{"http-my-agent", "", routeHTTP},
		{"", "https://example.com/chat", routeHTTP},
		{"dify", "", routeDify},
		{"dify-workflow:app", "", routeDify},
		{"coze-cn", "", routeCoze},
		{"coze-com:bot", "", routeCoze},
		{"openai:gpt-4o-mini", "", routeStandard},
		{"anthropic", "", routeStandard},
		{"slack-bot", "", routeLocal},
	}
	for _, tt := range tests {
		target := Options{ID: tt.id, Config: Config{URL: tt.url}}
		got, _ := client.resolve(target)
		if got != tt.want {
			t.Errorf("resolve(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestCallStandardOpenAIHappyPath(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{
				"message": map[string]any{"role": "assistant", "content": "hello"},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 2},
		})
	}))
	defer server.Close()

	t.Setenv("OPENAI_API_KEY", "sk-test")
	client := testClient(t)
	target := Options{
		ID:     "openai:gpt-4o-mini",
		Config: Config{APIBaseURL: server.URL},
	}

	result := client.Call(context.Background(), target, "ping")
	if !result.Success {
		t.Fatalf("Call() success = false, message = %q", result.Message)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("request path = %q, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want Bearer sk-test", gotAuth)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("body model = %v, want gpt-4o-mini", gotBody["model"])
	}
	if result.Response.Output != "hello" {
		t.Errorf("output = %q, want hello", result.Response.Output)
	}
	if !strings.HasPrefix(result.Message, "Connection successful! Status: 200") {
		t.Errorf("message = %q", result.Message)
	}

	// 10/1000*0.00015 + 2/1000*0.0006 rounded to 6 decimals.
	if math.Abs(result.Response.Cost-0.000003) > 1e-12 {
		t.Errorf("cost = %v, want 0.000003", result.Response.Cost)
	}
	if result.Response.Metadata["model"] != "gpt-4o-mini" {
		t.Errorf("metadata model = %v", result.Response.Metadata["model"])
	}
	if result.Response.Metadata["provider"] != "openai" {
		t.Errorf("metadata provider = %v", result.Response.Metadata["provider"])
	}
}

func TestCallStandardMissingKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	client := testClient(t)

	result := client.Call(context.Background(), Options{ID: "deepseek"}, "hi")
	if result.Success {
		t.Fatal("Call() success = true, want failure")
	}
	want := "Deepseek API key required. Set DEEPSEEK_API_KEY."
	if result.Message != want {
		t.Errorf("message = %q, want %q", result.Message, want)
	}
	if len(result.Suggestions) == 0 {
		t.Error("expected suggestions on missing key")
	}
}

func TestCallStandardAnthropicHeaders(t *testing.T) {
	var gotAPIKey, gotVersion string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content": []any{map[string]any{"type": "text", "text": "hey"}},
		})
	}))
	defer server.Close()

	temperature := 0.5
	client := testClient(t)
	target := Options{
		ID: "anthropic:claude-3-5-haiku-20241022",
		Config: Config{
			APIKey:      "ak-1",
			APIBaseURL:  server.URL,
			Temperature: &temperature,
		},
	}

	result := client.Call(context.Background(), target, "hi")
	if !result.Success {
		t.Fatalf("Call() failed: %s", result.Message)
	}
	if gotAPIKey != "ak-1" {
		t.Errorf("x-api-key = %q", gotAPIKey)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if gotBody["model"] != "claude-3-5-haiku-20241022" {
		t.Errorf("body model = %v", gotBody["model"])
	}
	if gotBody["temperature"] != 0.5 {
		t.Errorf("body temperature = %v, want 0.5", gotBody["temperature"])
	}
	if result.Response.Output != "hey" {
		t.Errorf("output = %q, want hey", result.Response.Output)
	}
}

func TestCallStandardGoogleQueryAuth(t *testing.T) {
	var gotURL string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": "4"}},
				},
			}},
		})
	}))
	defer server.Close()

	t.Setenv("GEMINI_API_KEY", "g-key")
	maxTokens := 64
	client := testClient(t)
	target := Options{
		ID: "google:gemini-2.0-flash",
		Config: Config{
			APIBaseURL: server.URL,
			MaxTokens:  &maxTokens,
		},
	}

	result := client.Call(context.Background(), target, "2+2?")
	if !result.Success {
		t.Fatalf("Call() failed: %s", result.Message)
	}
	if !strings.Contains(gotURL, "/v1beta/models/gemini-2.0-flash:generateContent") {
		t.Errorf("url = %q, want generateContent path", gotURL)
	}
	if !strings.Contains(gotURL, "key=g-key") {
		t.Errorf("url = %q, want key query param", gotURL)
	}
	if result.Response.Output != "4" {
		t.Errorf("output = %q, want 4", result.Response.Output)
	}

	// max_tokens is injected at top level; the template's
	// generationConfig.maxOutputTokens already has a value and stays.
	if gotBody["max_tokens"] != float64(64) {
		t.Errorf("body max_tokens = %v, want 64", gotBody["max_tokens"])
	}
	gc, _ := gotBody["generationConfig"].(map[string]any)
	if gc == nil || gc["maxOutputTokens"] != float64(1000) {
		t.Errorf("generationConfig = %v, want maxOutputTokens 1000", gc)
	}
}

func TestCallStandardErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "bad key"},
		})
	}))
	defer server.Close()

	client := testClient(t)
	target := Options{
		ID:     "openai:gpt-4o-mini",
		Config: Config{APIKey: "sk-bad", APIBaseURL: server.URL},
	}

	result := client.Call(context.Background(), target, "hi")
	if result.Success {
		t.Fatal("Call() success = true, want failure")
	}
	want := "Request failed with status 401: bad key"
	if result.Message != want {
		t.Errorf("message = %q, want %q", result.Message, want)
	}
	if result.Response.Error != "bad key" {
		t.Errorf("response error = %q, want bad key", result.Response.Error)
	}
}

func TestCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := testClient(t)
	target := Options{
		ID:     "http-slow",
		Config: Config{URL: server.URL, TimeoutMS: 50},
	}

	result := client.Call(context.Background(), target, "hi")
	if result.Success {
		t.Fatal("Call() success = true, want timeout failure")
	}
	if !strings.HasPrefix(result.Message, "Request timed out after") {
		t.Errorf("message = %q, want timeout message", result.Message)
	}
	if result.Response.Error != "Timeout" {
		t.Errorf("response error = %q, want Timeout", result.Response.Error)
	}
}

func TestCallConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := testClient(t)
	target := Options{ID: "http-dead", Config: Config{URL: url}}

	result := client.Call(context.Background(), target, "hi")
	if result.Success {
		t.Fatal("Call() success = true, want failure")
	}
	if !strings.HasPrefix(result.Message, "Connection refused: Cannot connect to") {
		t.Errorf("message = %q, want connection refused", result.Message)
	}
}

func TestCallDelaysAfterSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := testClient(t, WithSleepFunc(func(d time.Duration) { slept = append(slept, d) }))
	target := Options{ID: "http-paced", Delay: 250, Config: Config{URL: server.URL}}

	if result := client.Call(context.Background(), target, "hi"); !result.Success {
		t.Fatalf("Call() failed: %s", result.Message)
	}
	if len(slept) != 1 || slept[0] != 250*time.Millisecond {
		t.Errorf("slept = %v, want one 250ms pause", slept)
	}
}

func TestCallSkipsDelayOnFailure(t *testing.T) {
	var slept []time.Duration
	client := testClient(t, WithSleepFunc(func(d time.Duration) { slept = append(slept, d) }))
	target := Options{ID: "http-nowhere", Delay: 250}

	if result := client.Call(context.Background(), target, "hi"); result.Success {
		t.Fatal("Call() success = true, want failure for missing URL")
	}
	if len(slept) != 0 {
		t.Errorf("slept = %v, want no pause after failure", slept)
	}
}

func TestValidateLocal(t *testing.T) {
	client := testClient(t)

	result := client.Call(context.Background(), Options{ID: "slack-bot"}, "hi")
	if !result.Success {
		t.Fatalf("Call() failed: %s", result.Message)
	}
	if result.Message != "Configuration valid for: slack-bot" {
		t.Errorf("message = %q", result.Message)
	}
	if result.Response.Output != "Local validation passed for: slack-bot" {
		t.Errorf("output = %q", result.Response.Output)
	}
	if result.Response.Metadata["validation"] != "local" {
		t.Errorf("metadata = %v", result.Response.Metadata)
	}
}

func TestValidateTargetFailures(t *testing.T) {
	tests := []struct {
		name   string
		target Options
		want   string
	}{
		{
			name:   "empty id",
			target: Options{},
			want:   "Provider ID is required",
		},
		{
			name:   "websocket scheme",
			target: Options{ID: "websocket-agent", Config: Config{URL: "http://example.com"}},
			want:   "WebSocket URL must start with ws:// or wss://",
		},
		{
			name:   "websocket missing url",
			target: Options{ID: "websocket-agent"},
			want:   "WebSocket URL is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateTarget(tt.target)
			if result.Success {
				t.Fatal("ValidateTarget() success = true, want failure")
			}
			if !strings.Contains(result.Message, "Configuration validation failed:") {
				t.Errorf("message = %q", result.Message)
			}
			if !strings.Contains(result.Message, tt.want) {
				t.Errorf("message = %q, want substring %q", result.Message, tt.want)
			}
		})
	}
}

func TestCallDefaultsPrompt(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer server.Close()

	client := testClient(t)
	client.Call(context.Background(), Options{ID: "http-x", Config: Config{URL: server.URL}}, "")

	if gotBody["message"] != DefaultTestPrompt {
		t.Errorf("body message = %v, want %q", gotBody["message"], DefaultTestPrompt)
	}
}
