package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentscan/agentscan/pkg/llm"
	"github.com/agentscan/agentscan/pkg/prompts"
	"github.com/agentscan/agentscan/pkg/providers"
	"github.com/agentscan/agentscan/pkg/scanlog"
	"github.com/agentscan/agentscan/pkg/tools"
)

// ContextItem is one key/value pair of stage background information. Items
// render into the seed message in order.
type ContextItem struct {
	Key   string
	Value string
}

// RunParams bundles everything a pipeline stage passes to RunAgent.
type RunParams struct {
	// Description names the stage; it doubles as the agent name and the
	// plan step title.
	Description string

	// Instruction is the stage template text.
	Instruction string

	LLM             llm.LLM
	SpecializedLLMs map[string]llm.LLM

	// Prompt is the operator's scan prompt, appended after the opener.
	Prompt string

	// StageID is the plan step the stage logs under ("1", "2a", "3").
	StageID string

	Provider *providers.Options
	Adapter  *providers.Client
	Language string
	RepoDir  string

	// ContextData is background information seeded into the first user
	// message, in order.
	ContextData []ContextItem

	MaxIter        int
	FormatOnFinish *bool

	Dispatcher *tools.Dispatcher
	Prompts    *prompts.Store
	Log        *scanlog.Emitter
	Todos      *tools.TodoManager
}

// RunAgent announces a plan step, builds a fresh agent, seeds its first user
// message from the stage opener, the operator prompt, and the background
// items, then runs it to completion. Returns the final text and the
// per-tool usage counts; the counts are valid even when the run errors.
func RunAgent(ctx context.Context, p RunParams) (string, map[string]int, error) {
	logger := slog.Default().With("component", "agent")
	logger.Info("stage started", "stage", p.StageID, "title", p.Description)

	events := p.Log
	if events == nil {
		events = scanlog.NewStdout()
	}
	events.NewPlanStep(p.StageID, p.Description)

	stage, err := New(Config{
		Name:            p.Description,
		Instruction:     p.Instruction,
		LLM:             p.LLM,
		SpecializedLLMs: p.SpecializedLLMs,
		StepID:          p.StageID,
		Provider:        p.Provider,
		Adapter:         p.Adapter,
		Language:        p.Language,
		RepoDir:         p.RepoDir,
		MaxIter:         p.MaxIter,
		FormatOnFinish:  p.FormatOnFinish,
		Dispatcher:      p.Dispatcher,
		Prompts:         p.Prompts,
		Log:             events,
		Todos:           p.Todos,
	})
	if err != nil {
		return "", nil, err
	}
	if err := stage.Initialize(); err != nil {
		return "", nil, err
	}

	var msg strings.Builder
	if p.RepoDir != "" {
		msg.WriteString(stageOpener(stage.language, p.Description, p.RepoDir))
	}
	if p.Prompt != "" {
		msg.WriteString(p.Prompt)
		msg.WriteString("\n")
	}
	if len(p.ContextData) > 0 {
		msg.WriteString(backgroundHeader(stage.language))
		for _, item := range p.ContextData {
			msg.WriteString(item.Key)
			msg.WriteString(":")
			msg.WriteString(item.Value)
			msg.WriteString("\n\n")
		}
	}
	stage.AddUserMessage(msg.String())

	text, err := stage.Run(ctx)
	if err != nil {
		return "", stage.Stats(), err
	}
	return text, stage.Stats(), nil
}

func stageOpener(language, name, repoDir string) string {
	if language == "en" {
		return fmt.Sprintf("Please perform %s, folder at %s\n", name, repoDir)
	}
	return fmt.Sprintf("请进行%s，文件夹在 %s\n", name, repoDir)
}

func backgroundHeader(language string) string {
	if language == "en" {
		return "\n\nThe following background information is available:\n"
	}
	return "\n\n有以下背景信息：\n"
}
