// Package testutils provides testing utilities shared by the agentscan
// suites: a marker-routed fake LLM, prompt-directory scaffolding, and
// scan-event decoding.
package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/agentscan/agentscan/pkg/llm"
)

// Route scripts the reply sequence for conversations containing Marker. The
// last reply repeats once the sequence is exhausted; a non-nil Err fails
// every matching call instead.
type Route struct {
	Marker  string
	Replies []string
	Err     error

	hits int
}

// RoutedLLM picks a scripted reply by matching route markers against the
// whole conversation, so concurrent agents each get their own script. Safe
// for use from parallel workers.
type RoutedLLM struct {
	mu     sync.Mutex
	routes []Route
	calls  [][]llm.Message
}

// NewRoutedLLM builds a fake LLM from routes, matched in order.
func NewRoutedLLM(routes ...Route) *RoutedLLM {
	return &RoutedLLM{routes: routes}
}

func (m *RoutedLLM) Chat(_ context.Context, messages []llm.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]llm.Message(nil), messages...))

	var joined strings.Builder
	for _, msg := range messages {
		joined.WriteString(msg.Content)
		joined.WriteString("\n")
	}
	conversation := joined.String()

	for i := range m.routes {
		route := &m.routes[i]
		if !strings.Contains(conversation, route.Marker) {
			continue
		}
		if route.Err != nil {
			return "", route.Err
		}
		reply := route.Replies[min(route.hits, len(route.Replies)-1)]
		route.hits++
		return reply, nil
	}
	return "", fmt.Errorf("no scripted reply matches the conversation")
}

func (m *RoutedLLM) Model() string { return "routed-model" }

// FindCall returns the first recorded conversation containing marker.
func (m *RoutedLLM) FindCall(t *testing.T, marker string) []llm.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.calls {
		for _, msg := range call {
			if strings.Contains(msg.Content, marker) {
				return call
			}
		}
	}
	t.Fatalf("no recorded call contains %q", marker)
	return nil
}

// WritePromptDir lays out a prompt store under a temp dir: one
// system/<name>.md file per template entry. Returns the store root.
func WritePromptDir(t *testing.T, templates map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	system := filepath.Join(dir, "system")
	if err := os.MkdirAll(system, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, body := range templates {
		if err := os.WriteFile(filepath.Join(system, name+".md"), []byte(body), 0644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	return dir
}

// Event is one decoded scan-log line.
type Event struct {
	Type    string         `json:"type"`
	Content map[string]any `json:"content"`
}

// DecodeEvents parses every JSON line the emitter wrote to buf.
func DecodeEvents(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad event line %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

// EventsOfType filters events by type, preserving order.
func EventsOfType(events []Event, eventType string) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
