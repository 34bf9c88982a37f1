package tools

import "context"

// NewFinishTool builds the finish manifest. The agent loop intercepts finish
// before dispatch to run its final formatting round; the handler only exists
// so the tool shows up in the tools prompt and a stray dispatch stays
// harmless.
func NewFinishTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "finish",
			Description: "Declare the task complete. Call this once your investigation is done and you are ready to produce the final output.",
			Parameters: []Parameter{
				{Name: "content", Type: "string", Description: "Optional closing summary", Required: false},
			},
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			return stringArg(args, "content"), nil
		},
	}
}
