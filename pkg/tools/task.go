package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentscan/agentscan/pkg/prompts"
)

// NewTaskTool builds the task tool: spawn a sub-agent from a template under
// prompt/agents/ and return its final text. The sub-agent runs the full
// reasoning loop with its own history; only the outcome flows back into the
// parent conversation.
func NewTaskTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "task",
			Description: "Delegate a task to a specialized sub-agent. The sub-agent works autonomously and returns a summary of its findings.",
			Parameters: []Parameter{
				{Name: "prompt", Type: "string", Description: "The task for the sub-agent to perform", Required: true},
				{Name: "subagent_type", Type: "string", Description: "The agent template to use (see list_agents)", Required: true},
				{Name: "description", Type: "string", Description: "Short task description (3-5 words)", Required: false},
			},
			NeedsContext: true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			if tc == nil || tc.Spawn == nil {
				return Failure("Context is required for task execution"), nil
			}

			prompt := stringArg(args, "prompt")
			subagentType := stringArg(args, "subagent_type")
			description := stringArg(args, "description")

			agentPrompt := prompts.LoadAgentPrompt(tc.Prompts.AgentsDir(), subagentType)
			if agentPrompt == "" {
				available := prompts.ScanAgents(tc.Prompts.AgentsDir())
				names := make([]string, 0, len(available))
				for _, a := range available {
					names = append(names, a.Name)
				}
				listed := "none"
				if len(names) > 0 {
					listed = strings.Join(names, ", ")
				}
				return Failure(fmt.Sprintf("Unknown agent type: %s. Available agents: %s", subagentType, listed)), nil
			}

			taskLabel := description
			if taskLabel == "" {
				taskLabel = "Execute the following"
			}
			taskPrompt := fmt.Sprintf("\nTask: %s\n\n%s\n\nPlease complete this task and provide a summary of your actions and results.\n", taskLabel, prompt)

			result, err := tc.Spawn(ctx, SpawnRequest{
				Name:        subagentType,
				Instruction: agentPrompt,
				Prompt:      taskPrompt,
				Description: description,
				StepID:      tc.StepID,
			})
			if err != nil {
				return Failure(fmt.Sprintf("Error executing task: %v", err)), nil
			}

			output := result
			if description != "" {
				output = fmt.Sprintf("## Task: %s\n\n%s", description, result)
			}
			title := description
			if title == "" {
				title = "Task: " + subagentType
			}

			return NewFields().
				Set("success", true).
				Set("title", title).
				Set("output", output).
				Set("agent", subagentType).
				Set("metadata", map[string]string{
					"agent_type":  subagentType,
					"description": description,
				}), nil
		},
	}
}

// NewListAgentsTool builds list_agents: enumerate the sub-agent templates
// the task tool can spawn.
func NewListAgentsTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:         "list_agents",
			Description:  "List the sub-agent templates available to the task tool.",
			NeedsContext: true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			agents := prompts.ScanAgents(tc.Prompts.AgentsDir())

			if len(agents) == 0 {
				return NewFields().
					Set("success", true).
					Set("output", "No agents available.").
					Set("agents", []prompts.AgentInfo{}), nil
			}

			lines := []string{"Available agents:", ""}
			for _, a := range agents {
				desc := a.Description
				if runes := []rune(desc); len(runes) > 80 {
					desc = string(runes[:80])
				}
				lines = append(lines, fmt.Sprintf("  - %s: %s...", a.Name, desc))
			}

			return NewFields().
				Set("success", true).
				Set("output", strings.Join(lines, "\n")).
				Set("agents", agents), nil
		},
	}
}
