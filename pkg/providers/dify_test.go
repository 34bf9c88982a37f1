package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCallDifyChatStreaming(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"event":"message","answer":"Hello, ","conversation_id":"conv-1"}

data: {"event":"message","answer":"world."}

data: [DONE]
`))
	}))
	defer server.Close()

	client := testClient(t)
	target := Options{
		ID:     "dify",
		Config: Config{APIKey: "dk-1", APIBaseURL: server.URL},
	}

	result := client.Call(context.Background(), target, "greet me")
	if !result.Success {
		t.Fatalf("Call() failed: %s", result.Message)
	}
	if gotPath != "/chat-messages" {
		t.Errorf("path = %q, want /chat-messages", gotPath)
	}
	if gotAuth != "Bearer dk-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["query"] != "greet me" {
		t.Errorf("body query = %v", gotBody["query"])
	}
	if gotBody["response_mode"] != "streaming" {
		t.Errorf("body response_mode = %v", gotBody["response_mode"])
	}
	if gotBody["user"] != "agent-user" {
		t.Errorf("body user = %v", gotBody["user"])
	}
	if result.Response.Output != "Hello, world." {
		t.Errorf("output = %q, want %q", result.Response.Output, "Hello, world.")
	}
	if result.Response.SessionID != "conv-1" {
		t.Errorf("session_id = %q, want conv-1", result.Response.SessionID)
	}
	if result.Response.Metadata["provider"] != "dify" {
		t.Errorf("metadata provider = %v", result.Response.Metadata["provider"])
	}
	if result.Response.Metadata["endpoint"] != "/chat-messages" {
		t.Errorf("metadata endpoint = %v", result.Response.Metadata["endpoint"])
	}
}

func TestCallDifyWorkflow(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer":"done"}`))
	}))
	defer server.Close()

	client := testClient(t)
	target := Options{
		ID:     "dify-workflow:review",
		Config: Config{APIKey: "dk-1", APIBaseURL: server.URL},
	}

	result := client.Call(context.Background(), target, "run it")
	if !result.Success {
		t.Fatalf("Call() failed: %s", result.Message)
	}
	if gotPath != "/workflows/run" {
		t.Errorf("path = %q, want /workflows/run", gotPath)
	}
	inputs, _ := gotBody["inputs"].(map[string]any)
	if inputs == nil || inputs["query"] != "run it" {
		t.Errorf("body inputs = %v, want query set to prompt", gotBody["inputs"])
	}
	if result.Response.Output != "done" {
		t.Errorf("output = %q, want done", result.Response.Output)
	}
}

func TestCallDifyConversationContinuation(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		json.Unmarshal(payload, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer":"again","conversation_id":"conv-2"}`))
	}))
	defer server.Close()

	client := testClient(t)
	target := Options{
		ID: "dify",
		Config: Config{
			APIKey:     "dk-1",
			APIBaseURL: server.URL,
			Extra:      map[string]any{"conversation_id": "conv-2", "user": "tester"},
		},
	}

	result := client.Call(context.Background(), target, "more")
	if !result.Success {
		t.Fatalf("Call() failed: %s", result.Message)
	}
	if gotBody["conversation_id"] != "conv-2" {
		t.Errorf("body conversation_id = %v", gotBody["conversation_id"])
	}
	if gotBody["user"] != "tester" {
		t.Errorf("body user = %v, want tester", gotBody["user"])
	}
	if result.Response.SessionID != "conv-2" {
		t.Errorf("session_id = %q", result.Response.SessionID)
	}
}

func TestCallDifyMissingKey(t *testing.T) {
	t.Setenv("DIFY_API_KEY", "")
	client := testClient(t)

	result := client.Call(context.Background(), Options{ID: "dify"}, "hi")
	if result.Success {
		t.Fatal("Call() success = true, want failure")
	}
	want := "Dify API key required. Set DIFY_API_KEY environment variable."
	if result.Message != want {
		t.Errorf("message = %q, want %q", result.Message, want)
	}
}
