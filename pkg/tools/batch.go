package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

const maxBatchSize = 10

// Tools that must not run inside a batch: nesting batches hides the size
// cap, and finish must stay visible to the agent loop.
var disallowedInBatch = map[string]bool{
	"batch":  true,
	"finish": true,
}

const disallowedList = "batch, finish"

// NewBatchTool builds the batch tool: execute up to 10 tool calls serially
// in one round. Entries beyond the cap are reported back unexecuted.
func NewBatchTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "batch",
			Description: "Execute multiple tool calls in a single round. Pass a JSON array of {tool, parameters} objects; at most 10 are executed, in order.",
			Parameters: []Parameter{
				{Name: "tool_calls", Type: "array", Description: "JSON array of tool call objects, each with \"tool\" and \"parameters\"", Required: true},
			},
			NeedsContext: true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			calls, errResult := decodeToolCalls(args["tool_calls"])
			if errResult != nil {
				return errResult, nil
			}

			execute := calls
			var discarded []any
			if len(calls) > maxBatchSize {
				execute = calls[:maxBatchSize]
				discarded = calls[maxBatchSize:]
			}

			var results []any
			successful := 0
			for i, call := range execute {
				result := executeBatchCall(ctx, call, i, tc)
				if s, _ := result.Get("success"); s == true {
					successful++
				}
				results = append(results, result)
			}
			for i, call := range discarded {
				results = append(results, NewFields().
					Set("index", maxBatchSize+i).
					Set("tool", callTool(call)).
					Set("success", false).
					Set("error", fmt.Sprintf("Maximum of %d tools allowed in batch", maxBatchSize)))
			}

			failed := len(results) - successful
			var output string
			if failed > 0 {
				output = fmt.Sprintf("Executed %d/%d tools successfully. %d failed.", successful, len(results), failed)
			} else {
				output = fmt.Sprintf("All %d tools executed successfully.\n\nKeep using the batch tool for optimal performance!", successful)
			}

			tools := make([]string, 0, len(calls))
			for _, call := range calls {
				tools = append(tools, callTool(call))
			}

			return NewFields().
				Set("success", failed == 0).
				Set("title", fmt.Sprintf("Batch execution (%d/%d successful)", successful, len(results))).
				Set("output", output).
				Set("metadata", NewFields().
					Set("total_calls", len(results)).
					Set("successful", successful).
					Set("failed", failed).
					Set("tools", tools).
					Set("details", results)), nil
		},
	}
}

// decodeToolCalls accepts the tool_calls argument as a JSON string (the XML
// protocol delivers strings) or an already-decoded array.
func decodeToolCalls(raw any) ([]any, *Fields) {
	noCalls := Failure("No tool calls provided. Provide at least one tool call.")
	notArray := Failure("tool_calls must be an array of tool call objects")

	switch v := raw.(type) {
	case nil:
		return nil, noCalls
	case []any:
		if len(v) == 0 {
			return nil, noCalls
		}
		return v, nil
	case string:
		if v == "" {
			return nil, noCalls
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, notArray
		}
		if decoded == nil {
			return nil, noCalls
		}
		list, ok := decoded.([]any)
		if !ok {
			return nil, notArray
		}
		if len(list) == 0 {
			return nil, noCalls
		}
		return list, nil
	default:
		return nil, notArray
	}
}

func callTool(call any) string {
	if m, ok := call.(map[string]any); ok {
		if name, ok := m["tool"].(string); ok && name != "" {
			return name
		}
	}
	return "unknown"
}

func executeBatchCall(ctx context.Context, call any, index int, tc *Context) *Fields {
	entry, ok := call.(map[string]any)
	if !ok {
		return NewFields().
			Set("index", index).
			Set("tool", "unknown").
			Set("success", false).
			Set("error", "tool call must be an object")
	}

	toolName, _ := entry["tool"].(string)
	parameters := callParameters(entry["parameters"])

	if disallowedInBatch[toolName] {
		return NewFields().
			Set("index", index).
			Set("tool", toolName).
			Set("success", false).
			Set("error", fmt.Sprintf("Tool '%s' is not allowed in batch. Disallowed tools: %s", toolName, disallowedList))
	}

	var registry *Registry
	if tc != nil && tc.Dispatcher != nil {
		registry = tc.Dispatcher.Registry()
	}
	var tool Tool
	found := false
	if registry != nil {
		tool, found = registry.Get(toolName)
	}
	if !found {
		return NewFields().
			Set("index", index).
			Set("tool", toolName).
			Set("success", false).
			Set("error", fmt.Sprintf("Tool '%s' not found in registry", toolName))
	}

	callCtx := tc
	if !tool.NeedsContext {
		callCtx = nil
	}
	result, err := tool.Handler(ctx, parameters, callCtx)
	if err != nil {
		return NewFields().
			Set("index", index).
			Set("tool", toolName).
			Set("success", false).
			Set("error", err.Error())
	}

	switch v := result.(type) {
	case *Fields:
		success := true
		if s, ok := v.Get("success"); ok {
			if b, ok := s.(bool); ok {
				success = b
			}
		}
		return NewFields().
			Set("index", index).
			Set("tool", toolName).
			Set("success", success).
			Set("result", v)
	case map[string]any:
		success := true
		if b, ok := v["success"].(bool); ok {
			success = b
		}
		return NewFields().
			Set("index", index).
			Set("tool", toolName).
			Set("success", success).
			Set("result", v)
	default:
		return NewFields().
			Set("index", index).
			Set("tool", toolName).
			Set("success", true).
			Set("result", coerce(result))
	}
}

func callParameters(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		return v
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			return decoded
		}
	}
	return map[string]any{}
}
