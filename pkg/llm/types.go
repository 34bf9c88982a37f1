// Package llm provides the chat client the scanner's reasoning agents run
// on. The client speaks the OpenAI chat-completions wire format, which is
// also what self-hosted gateways (vLLM, LiteLLM, Ollama) expose, so a single
// implementation covers every deployment we care about.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLM is the oracle the agent loop consumes: full history in, text out.
// Tool invocations travel inside the text, so the interface carries no
// function-calling surface.
type LLM interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Model() string
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
