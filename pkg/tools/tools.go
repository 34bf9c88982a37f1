// Package tools implements the scanner's tool surface: static manifests, the
// dispatcher that routes model-issued tool calls, and the built-in tool set
// (target dialogue, endpoint scanning, skill packages, sub-agent tasks, and a
// workspace toolbox for the reasoning loop).
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Parameter describes one tool argument as advertised to the model.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Handler executes one tool call. Arguments arrive as parsed invocation
// values (strings when they came through the XML protocol). Results may be a
// string, a *Fields, or any value the dispatcher can coerce; a returned
// error surfaces to the model as an "Error: ..." line.
type Handler func(ctx context.Context, args map[string]any, tc *Context) (any, error)

// Manifest is the static description of a tool: everything the tools prompt
// and the dispatcher need without invoking it.
type Manifest struct {
	Name         string
	Description  string
	Parameters   []Parameter
	NeedsContext bool // handler receives the live *Context
	Sandbox      bool // confined to the scanned repository
}

// Tool pairs a manifest with its handler.
type Tool struct {
	Manifest
	Handler Handler
}

// RegistryError reports a tool registration or lookup failure.
type RegistryError struct {
	Action  string
	Message string
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("[tools:%s] %s", e.Action, e.Message)
}

// Registry holds the tool set in registration order. It is populated once at
// startup and read-only during scans, so lookups need no locking.
type Registry struct {
	order []string
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique and non-empty, handlers non-nil.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return &RegistryError{Action: "Register", Message: "tool name cannot be empty"}
	}
	if t.Handler == nil {
		return &RegistryError{Action: "Register", Message: fmt.Sprintf("tool %s has no handler", t.Name)}
	}
	if _, exists := r.tools[t.Name]; exists {
		return &RegistryError{Action: "Register", Message: fmt.Sprintf("tool %s already registered", t.Name)}
	}
	r.order = append(r.order, t.Name)
	r.tools[t.Name] = t
	return nil
}

// MustRegister panics on registration failure. The built-in set uses it;
// a broken built-in is a programming error, not a runtime condition.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

func (r *Registry) Len() int {
	return len(r.order)
}

// ToolsPrompt renders the descriptor block spliced into the system prompt:
// one <tool> element per registered tool with its name, description, and
// parameter list.
func (r *Registry) ToolsPrompt() string {
	var b strings.Builder
	for _, name := range r.order {
		t := r.tools[name]
		b.WriteString("<tool>\n")
		b.WriteString("<name>" + t.Name + "</name>\n")
		b.WriteString("<description>" + t.Description + "</description>\n")
		b.WriteString("<parameters>\n")
		for _, p := range t.Parameters {
			requirement := "optional"
			if p.Required {
				requirement = "required"
			}
			fmt.Fprintf(&b, "- %s (%s, %s): %s\n", p.Name, p.Type, requirement, p.Description)
		}
		b.WriteString("</parameters>\n")
		b.WriteString("</tool>\n")
	}
	return b.String()
}

// Fields is an insertion-ordered result map. Handlers return one when the
// dispatcher should render the result as <key>value</key> lines; a plain Go
// map would randomize the line order between runs.
type Fields struct {
	keys []string
	vals map[string]any
}

func NewFields() *Fields {
	return &Fields{vals: make(map[string]any)}
}

// Set adds or replaces a field, keeping first-insertion order.
func (f *Fields) Set(key string, value any) *Fields {
	if _, ok := f.vals[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.vals[key] = value
	return f
}

func (f *Fields) Get(key string) (any, bool) {
	v, ok := f.vals[key]
	return v, ok
}

// Keys returns field names in insertion order.
func (f *Fields) Keys() []string {
	return f.keys
}

func (f *Fields) Len() int {
	return len(f.keys)
}

// MarshalJSON renders the fields as a JSON object in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, key := range f.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		vb, err := json.Marshal(f.vals[key])
		if err != nil {
			return nil, err
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Failure is the canonical error result shape shared by the built-in tools.
func Failure(message string) *Fields {
	return NewFields().Set("success", false).Set("error", message)
}
