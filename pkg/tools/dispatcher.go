package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentscan/agentscan/pkg/llm"
	"github.com/agentscan/agentscan/pkg/observability"
)

// Tool results above this many tokens are cut before they enter the agent's
// history; a runaway read or endpoint scan would otherwise crowd out the
// conversation.
const maxResultTokens = 20000

const truncationMarker = "\n\n...(tool result truncated)"

// Dispatcher routes model-issued tool calls to registered handlers and
// normalizes every outcome to a string for the conversation history.
type Dispatcher struct {
	registry *Registry
	counter  *llm.TokenCounter
}

// NewDispatcher wires a registry to an optional token counter. A nil counter
// disables result truncation.
func NewDispatcher(registry *Registry, counter *llm.TokenCounter) *Dispatcher {
	return &Dispatcher{registry: registry, counter: counter}
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs one tool call. Unknown tools and handler errors come back as
// "Error: ..." strings rather than Go errors: the model is the consumer and
// the loop must keep running either way.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, tc *Context) string {
	tracer := observability.GetTracer("agentscan/tools")
	ctx, span := tracer.Start(ctx, observability.SpanToolExecution,
		trace.WithAttributes(attribute.String(observability.AttrToolName, name)))
	defer span.End()

	tool, ok := d.registry.Get(name)
	if !ok {
		span.SetStatus(codes.Error, "tool not found")
		return fmt.Sprintf("Error: Tool '%s' not found", name)
	}

	if args == nil {
		args = map[string]any{}
	}
	callCtx := tc
	if !tool.NeedsContext {
		callCtx = nil
	}

	result, err := tool.Handler(ctx, args, callCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "Error: " + err.Error()
	}
	span.SetStatus(codes.Ok, "")

	return d.clip(FormatResult(result))
}

func (d *Dispatcher) clip(s string) string {
	if d.counter == nil {
		return s
	}
	return d.counter.Truncate(s, maxResultTokens, truncationMarker)
}

// FormatResult renders a handler result for the conversation: ordered
// <key>value</key> lines for field maps, pass-through for strings, and
// best-effort coercion for everything else.
func FormatResult(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case *Fields:
		var b strings.Builder
		for _, key := range v.Keys() {
			val, _ := v.Get(key)
			writeField(&b, key, val)
		}
		return b.String()
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, key := range keys {
			writeField(&b, key, v[key])
		}
		return b.String()
	default:
		return coerce(result)
	}
}

func writeField(b *strings.Builder, key string, val any) {
	b.WriteString("<")
	b.WriteString(key)
	b.WriteString(">")
	b.WriteString(coerce(val))
	b.WriteString("</")
	b.WriteString(key)
	b.WriteString(">\n")
}

// coerce stringifies one field value: strings pass through, everything else
// becomes compact JSON so nested structures stay parseable.
func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
