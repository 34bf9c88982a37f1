package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agentscan/agentscan/pkg/providers"
)

const (
	dialogueAttempts = 2
	dialogueBackoff  = 2 * time.Second
)

// Client-side HTTP failures no retry can fix.
var permanentStatuses = []string{
	"status 400",
	"status 401",
	"status 403",
	"status 404",
	"status 422",
}

func permanentFailure(message string) bool {
	for _, s := range permanentStatuses {
		if strings.Contains(message, s) {
			return true
		}
	}
	return false
}

// NewDialogueTool builds the dialogue tool: one turn against the scan
// target, with a single retry on transient failure. The sleep func is
// injectable for tests; nil means the real clock.
func NewDialogueTool(sleep func(time.Duration)) Tool {
	if sleep == nil {
		sleep = time.Sleep
	}
	return Tool{
		Manifest: Manifest{
			Name:        "dialogue",
			Description: "Send a single-turn prompt to the target agent and return its reply. Use this to probe how the agent responds.",
			Parameters: []Parameter{
				{Name: "prompt", Type: "string", Description: "The prompt to send to the target agent", Required: true},
			},
			NeedsContext: true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			prompt := stringArg(args, "prompt")
			if prompt == "" {
				return nil, errors.New("prompt is required")
			}

			var last providers.Result
			for attempt := 1; attempt <= dialogueAttempts; attempt++ {
				result, err := tc.CallProvider(ctx, prompt)
				if err != nil {
					return nil, err
				}
				if result.Success {
					return result.Output(), nil
				}
				last = result
				if permanentFailure(result.Message) {
					break
				}
				if attempt < dialogueAttempts {
					sleep(dialogueBackoff)
				}
			}
			return "[Error: " + last.Message + "]", nil
		},
	}
}
