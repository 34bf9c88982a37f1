package tools

import (
	"context"
	"errors"

	"github.com/agentscan/agentscan/pkg/llm"
	"github.com/agentscan/agentscan/pkg/prompts"
	"github.com/agentscan/agentscan/pkg/providers"
	"github.com/agentscan/agentscan/pkg/scanlog"
)

// SpawnRequest describes a sub-agent run requested by the task tool. The
// agent layer installs the spawn func when it builds a Context, which keeps
// this package free of a dependency on the reasoning loop.
type SpawnRequest struct {
	Name        string // sub-agent template name, used for labeling
	Instruction string // template body, becomes the sub-agent's instruction
	Prompt      string // first user message
	Description string // short task summary for progress events
	StepID      string // plan step the sub-agent logs under
}

// SpawnFunc runs a sub-agent to completion and returns its final text.
type SpawnFunc func(ctx context.Context, req SpawnRequest) (string, error)

// Context is the per-call environment injected into context-needing tools:
// the evaluation LLMs, the live conversation, the scan target, and the
// scan's shared services. A fresh Context is built for every dispatch; only
// the referenced services are shared.
type Context struct {
	LLM             llm.LLM
	SpecializedLLMs map[string]llm.LLM
	History         *[]llm.Message // borrowed from the owning agent
	AgentName       string
	Iteration       int
	Folder          string // scanned repository root
	Provider        *providers.Options
	Adapter         *providers.Client
	Language        string
	StepID          string
	Log             *scanlog.Emitter
	Prompts         *prompts.Store
	Dispatcher      *Dispatcher
	Todos           *TodoManager
	Spawn           SpawnFunc
}

// GetLLM returns the purpose-specific LLM when one is configured, otherwise
// the default.
func (tc *Context) GetLLM(purpose string) llm.LLM {
	if model, ok := tc.SpecializedLLMs[purpose]; ok {
		return model
	}
	return tc.LLM
}

// RecentHistory returns the last n conversation turns.
func (tc *Context) RecentHistory(n int) []llm.Message {
	if tc.History == nil {
		return nil
	}
	h := *tc.History
	if len(h) > n {
		return h[len(h)-n:]
	}
	return h
}

// CallProvider sends one prompt to the scan target. Transport failures come
// back inside the Result; the error covers a missing target only.
func (tc *Context) CallProvider(ctx context.Context, prompt string) (providers.Result, error) {
	if tc.Provider == nil || tc.Adapter == nil {
		return providers.Result{}, errors.New("Agent provider not set")
	}
	return tc.Adapter.Call(ctx, *tc.Provider, prompt), nil
}

// CallLLM runs one evaluation-LLM round. An optional system prompt leads;
// with useHistory the conversation minus its system prompt is replayed
// before the new user message.
func (tc *Context) CallLLM(ctx context.Context, prompt, purpose, systemPrompt string, useHistory bool) (string, error) {
	model := tc.GetLLM(purpose)
	if model == nil {
		return "", errors.New("no LLM configured")
	}

	var messages []llm.Message
	if systemPrompt != "" {
		messages = append(messages, llm.SystemMessage(systemPrompt))
	}
	if useHistory && tc.History != nil && len(*tc.History) > 1 {
		messages = append(messages, (*tc.History)[1:]...)
	}
	messages = append(messages, llm.UserMessage(prompt))

	return model.Chat(ctx, messages)
}

// CallLLMMessages runs one round over a caller-built message list.
func (tc *Context) CallLLMMessages(ctx context.Context, messages []llm.Message, purpose string) (string, error) {
	model := tc.GetLLM(purpose)
	if model == nil {
		return "", errors.New("no LLM configured")
	}
	return model.Chat(ctx, messages)
}
