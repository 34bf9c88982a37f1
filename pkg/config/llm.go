package config

import (
	"fmt"
	"os"
)

// LLMConfig configures the evaluation LLM that drives the scan agents. Any
// OpenAI-compatible chat completions endpoint works (OpenAI, OpenRouter,
// vLLM, Ollama with /v1).
type LLMConfig struct {
	// Model name (e.g., "gpt-4o", "anthropic/claude-sonnet-4").
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model identifier,default=gpt-4o"`

	// APIKey for authentication. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=API key for authentication (use ${ENV_VAR})"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=OpenAI-compatible API base URL"`

	// Temperature for generation (0.0 - 2.0).
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature,description=Sampling temperature,minimum=0,maximum=2,default=0.3"`

	// MaxTokens limits response length.
	MaxTokens int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" jsonschema:"title=Max Tokens,description=Maximum tokens to generate,minimum=1,default=8192"`

	// Timeout for a single completion request, in seconds.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Request timeout in seconds,minimum=1,default=120"`

	// MaxRetries for transient completion failures.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,description=Retries for transient failures,minimum=0,default=3"`
}

// SetDefaults applies default values.
func (c *LLMConfig) SetDefaults() {
	if c.Model == "" {
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			c.Model = model
		} else {
			c.Model = "gpt-4o"
		}
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if c.BaseURL == "" {
		if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
			c.BaseURL = url
		} else {
			c.BaseURL = "https://api.openai.com/v1"
		}
	}

	if c.Temperature == nil {
		temp := 0.3
		c.Temperature = &temp
	}

	if c.MaxTokens == 0 {
		c.MaxTokens = 8192
	}

	if c.Timeout == 0 {
		c.Timeout = 120
	}

	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

// Validate checks the LLM configuration.
func (c *LLMConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required (set OPENAI_API_KEY or llm.api_key)")
	}

	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be positive")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}
