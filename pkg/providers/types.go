package providers

// Options identifies one remote agent target: a routable ID plus the
// per-target overrides loaded from a provider config file. The ID encodes
// the protocol family ("openai:gpt-4o-mini", "dify-workflow", "coze-cn",
// "http-my-agent") and is the only required field.
type Options struct {
	ID     string `yaml:"id" json:"id"`
	Label  string `yaml:"label,omitempty" json:"label,omitempty"`
	Delay  int    `yaml:"delay,omitempty" json:"delay,omitempty"`
	Config Config `yaml:"config,omitempty" json:"config,omitempty"`
}

// DisplayName returns the label when set, otherwise the ID. Reports use it
// as the human-readable target name.
func (o Options) DisplayName() string {
	if o.Label != "" {
		return o.Label
	}
	return o.ID
}

// Config carries per-target connection overrides. Every field is optional;
// the catalog supplies defaults for standard providers. Body accepts either
// a map or a string template, both of which may reference {{prompt}} and
// {{model}}.
type Config struct {
	URL               string            `yaml:"url,omitempty" json:"url,omitempty"`
	Endpoint          string            `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Method            string            `yaml:"method,omitempty" json:"method,omitempty"`
	Headers           map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body              any               `yaml:"body,omitempty" json:"body,omitempty"`
	APIKey            string            `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	APIBaseURL        string            `yaml:"api_base_url,omitempty" json:"api_base_url,omitempty"`
	Model             string            `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature       *float64          `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens         *int              `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	TransformResponse string            `yaml:"transform_response,omitempty" json:"transform_response,omitempty"`
	TimeoutMS         int               `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	Extra             map[string]any    `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// extraString reads a string value from Config.Extra with a fallback.
func (c Config) extraString(key, fallback string) string {
	if v, ok := c.Extra[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Result is the outcome of a single provider call. Calls never return a Go
// error: transport failures, HTTP errors, and configuration problems all
// land here with Success=false and an operator-readable Message.
type Result struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	Response    *Response `json:"provider_response,omitempty"`
}

// Response holds the wire-level detail behind a Result: the decoded body,
// the extracted assistant text, and transport metadata.
type Response struct {
	Raw        any               `json:"raw,omitempty"`
	Output     string            `json:"output,omitempty"`
	Error      string            `json:"error,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	TokenUsage map[string]any    `json:"token_usage,omitempty"`
	Cost       float64           `json:"cost,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// Output returns the extracted assistant text, or the result message when
// extraction produced nothing. Dialogue callers treat this as the reply.
func (r Result) Output() string {
	if r.Response != nil && r.Response.Output != "" {
		return r.Response.Output
	}
	return r.Message
}

func failure(message string, suggestions ...string) Result {
	return Result{
		Success:     false,
		Message:     message,
		Suggestions: suggestions,
		Response:    &Response{Error: message},
	}
}
