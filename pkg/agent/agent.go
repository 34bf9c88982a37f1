// Package agent implements the reasoning loop every scan stage runs on: an
// LLM-driven conversation that issues tool invocations in an XML protocol,
// dispatches them, and feeds results back until the agent finishes or its
// iteration budget runs out. One BaseAgent owns one conversation history.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/agentscan/agentscan/pkg/llm"
	"github.com/agentscan/agentscan/pkg/prompts"
	"github.com/agentscan/agentscan/pkg/providers"
	"github.com/agentscan/agentscan/pkg/scanlog"
	"github.com/agentscan/agentscan/pkg/tools"
)

const (
	defaultMaxIter = 80

	// Sub-agents spawned by the task tool get a tighter budget; they handle
	// delegated chores, not whole stages.
	subAgentMaxIter = 20
	maxSpawnDepth   = 2
)

const noToolNudge = "You didn't call any tool, please call a tool"

// Config assembles a BaseAgent. LLM, Dispatcher, and Prompts are required;
// everything else has workable defaults.
type Config struct {
	// Name labels the agent in logs and in its system prompt.
	Name string

	// Instruction is the stage template text; it also becomes the output
	// format during the finish-formatting round.
	Instruction string

	// LLM drives the reasoning loop.
	LLM llm.LLM

	// SpecializedLLMs overrides the default LLM per purpose (e.g. "judge").
	SpecializedLLMs map[string]llm.LLM

	// StepID is the plan step all of this agent's events log under.
	StepID string

	// Provider and Adapter identify the scan target; nil for agents that
	// never talk to it.
	Provider *providers.Options
	Adapter  *providers.Client

	// Language selects the seeded user-visible strings ("zh" or "en").
	Language string

	// RepoDir is the scanned repository root.
	RepoDir string

	// MaxIter caps reasoning iterations. Zero means the default of 80.
	MaxIter int

	// FormatOnFinish controls the extra formatting round after the finish
	// call. Nil means enabled; detection workers disable it because their
	// raw output already carries the vuln blocks.
	FormatOnFinish *bool

	Dispatcher *tools.Dispatcher
	Prompts    *prompts.Store
	Log        *scanlog.Emitter
	Todos      *tools.TodoManager
}

// BaseAgent is one iterative reasoning loop over one conversation history.
// It is not safe for concurrent use; parallel stages each build their own.
type BaseAgent struct {
	name           string
	instruction    string
	llm            llm.LLM
	specialized    map[string]llm.LLM
	stepID         string
	provider       *providers.Options
	adapter        *providers.Client
	language       string
	repoDir        string
	maxIter        int
	formatOnFinish bool
	dispatcher     *tools.Dispatcher
	prompts        *prompts.Store
	events         *scanlog.Emitter
	todos          *tools.TodoManager
	logger         *slog.Logger

	history  []llm.Message
	iter     int
	finished bool
	state    State
	depth    int
	stats    map[string]int
}

// New builds an agent in StateInit. The system prompt is rendered lazily by
// Initialize so template problems surface as errors, not panics.
func New(cfg Config) (*BaseAgent, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("agent %q: LLM is required", cfg.Name)
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("agent %q: dispatcher is required", cfg.Name)
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("agent %q: prompt store is required", cfg.Name)
	}

	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}
	language := cfg.Language
	if language == "" {
		language = "zh"
	}
	events := cfg.Log
	if events == nil {
		events = scanlog.NewStdout()
	}
	formatOnFinish := true
	if cfg.FormatOnFinish != nil {
		formatOnFinish = *cfg.FormatOnFinish
	}

	return &BaseAgent{
		name:           cfg.Name,
		instruction:    cfg.Instruction,
		llm:            cfg.LLM,
		specialized:    cfg.SpecializedLLMs,
		stepID:         cfg.StepID,
		provider:       cfg.Provider,
		adapter:        cfg.Adapter,
		language:       language,
		repoDir:        cfg.RepoDir,
		maxIter:        maxIter,
		formatOnFinish: formatOnFinish,
		dispatcher:     cfg.Dispatcher,
		prompts:        cfg.Prompts,
		events:         events,
		todos:          cfg.Todos,
		logger:         slog.Default().With("component", "agent"),
		state:          StateInit,
		stats:          make(map[string]int),
	}, nil
}

// Initialize renders the system prompt as message 0. Idempotent; Run calls
// it when the caller has not.
func (a *BaseAgent) Initialize() error {
	if len(a.history) > 0 && a.history[0].Role == llm.RoleSystem {
		return nil
	}
	system, err := a.prompts.Format("system_prompt", map[string]string{
		"generate_tools": a.dispatcher.Registry().ToolsPrompt(),
		"name":           a.name,
		"instruction":    a.instruction,
	})
	if err != nil {
		return fmt.Errorf("agent %q: system prompt: %w", a.name, err)
	}
	a.history = append([]llm.Message{llm.SystemMessage(system)}, a.history...)
	a.state = StateReady
	return nil
}

// AddUserMessage appends a user turn to the history.
func (a *BaseAgent) AddUserMessage(content string) {
	a.history = append(a.history, llm.UserMessage(content))
}

// SetRepoDir points the agent's sandboxed tools at the scanned repository.
func (a *BaseAgent) SetRepoDir(dir string) {
	a.repoDir = dir
}

// Stats returns the per-tool invocation counts accumulated so far.
func (a *BaseAgent) Stats() map[string]int {
	return a.stats
}

// State reports the agent's lifecycle state.
func (a *BaseAgent) State() State {
	return a.state
}

// Run drives the loop until the agent finishes or exhausts its budget. The
// returned text is the formatted final output — or the raw last response
// when finish formatting is disabled; exhaustion without a finish call
// returns the empty string. LLM transport failures abort the run with a
// failed status event.
func (a *BaseAgent) Run(ctx context.Context) (string, error) {
	if err := a.Initialize(); err != nil {
		return "", a.fail(err)
	}
	a.state = StateRunning
	a.logger.Info("agent started", "agent", a.name, "max_iter", a.maxIter)

	var result string
	for !a.finished && a.iter < a.maxIter {
		response, err := a.llm.Chat(ctx, a.history)
		if err != nil {
			return "", a.fail(fmt.Errorf("agent %q: chat failed on iteration %d: %w", a.name, a.iter, err))
		}
		a.history = append(a.history, llm.AssistantMessage(response))

		text, final, err := a.handleResponse(ctx, response)
		if err != nil {
			return "", a.fail(err)
		}
		if final {
			result = text
		}
		a.iter++
	}

	if !a.finished {
		a.logger.Warn("iteration budget exhausted", "agent", a.name, "max_iter", a.maxIter)
		a.state = StateCompacting
		a.compactHistory(ctx)
		a.state = StateExhausted
	}
	return result, nil
}

// fail emits the terminal failed status and passes the error through.
func (a *BaseAgent) fail(err error) error {
	a.events.StatusUpdate(a.stepID, err.Error(), "", scanlog.StepFailed)
	return err
}

func (a *BaseAgent) handleResponse(ctx context.Context, response string) (string, bool, error) {
	description := CleanContent(response)
	if description == "" {
		description = continueBrief(a.language)
	}
	a.events.StatusUpdate(a.stepID, description, "", scanlog.StepRunning)

	inv, ok := ParseInvocation(response)
	if !ok {
		a.handleNoTool(description)
		return "", false, nil
	}
	return a.processToolCall(ctx, inv, description, response)
}

func (a *BaseAgent) handleNoTool(description string) {
	a.history = append(a.history, llm.UserMessage(a.nextPrompt()+"\n\n"+noToolNudge))
	a.events.StatusUpdate(a.stepID, description, "", scanlog.StepCompleted)
}

func (a *BaseAgent) processToolCall(ctx context.Context, inv Invocation, description, response string) (string, bool, error) {
	toolID := uuid.NewString()
	params := a.renderParams(inv.Args)

	a.events.ToolUsed(a.stepID, toolID, inv.Name, inv.Name, scanlog.ToolDone, params)
	a.stats[inv.Name]++

	if inv.Name == "finish" {
		return a.finishRun(ctx, toolID, description, response)
	}

	result := a.dispatcher.Dispatch(ctx, inv.Name, inv.Args, a.toolContext())

	a.history = append(a.history, llm.UserMessage(a.nextPrompt()+"\n---\n"+result))
	a.events.StatusUpdate(a.stepID, description, "", scanlog.StepCompleted)

	// read results are bulk file content; echoing them into the event
	// stream would drown it.
	if inv.Name != "read" {
		a.events.ActionLog(toolID, inv.Name, a.stepID, "```\n"+result+"\n```")
	}
	return "", false, nil
}

// finishRun handles the finish invocation: one extra LLM round reshapes the
// transcript into the instructed output format, unless the caller disabled
// formatting, in which case the raw finishing response is the final text.
func (a *BaseAgent) finishRun(ctx context.Context, toolID, description, response string) (string, bool, error) {
	a.finished = true

	final := response
	if a.formatOnFinish {
		formatted, err := a.formatFinalOutput(ctx)
		if err != nil {
			return "", false, err
		}
		final = formatted
	}
	a.state = StateFinished
	a.logger.Info("finish called", "agent", a.name, "iterations", a.iter)

	a.events.StatusUpdate(a.stepID, description, "", scanlog.StepCompleted)
	a.events.ActionLog(toolID, "finish", a.stepID, final)
	return final, true, nil
}

func (a *BaseAgent) formatFinalOutput(ctx context.Context) (string, error) {
	formatting, err := a.prompts.Format("format_report", map[string]string{
		"output_format": a.instruction,
	})
	if err != nil {
		return "", fmt.Errorf("agent %q: format_report template: %w", a.name, err)
	}
	messages := make([]llm.Message, 0, len(a.history))
	messages = append(messages, a.history[1:]...)
	messages = append(messages, llm.UserMessage(formatting))
	return a.llm.Chat(ctx, messages)
}

// compactHistory condenses everything after the system prompt into a single
// context message, keeping the original goal verbatim. Runs at most once,
// when the budget is spent; a condensing failure is logged and the history
// left as is.
func (a *BaseAgent) compactHistory(ctx context.Context) {
	if len(a.history) < 3 {
		return
	}
	prompt, err := a.prompts.Load("compact")
	if err != nil {
		a.logger.Warn("compact template unavailable", "error", err)
		return
	}
	messages := make([]llm.Message, 0, len(a.history))
	messages = append(messages, a.history[1:]...)
	messages = append(messages, llm.UserMessage(prompt))

	condensed, err := a.llm.Chat(ctx, messages)
	if err != nil {
		a.logger.Warn("history compaction failed", "agent", a.name, "error", err)
		return
	}

	goal := a.history[1].Content
	seeded := "我希望你完成:" + goal + " \n\n有以下上下文提供你参考:\n" + condensed
	a.history = []llm.Message{a.history[0], llm.UserMessage(seeded)}
}

func (a *BaseAgent) nextPrompt() string {
	next, err := a.prompts.Format("next_prompt", map[string]string{
		"round": strconv.Itoa(a.iter),
	})
	if err != nil {
		a.logger.Warn("next_prompt template unavailable", "error", err)
		return ""
	}
	return next
}

// renderParams serializes tool arguments for the toolUsed event, with the
// repository path scrubbed so event consumers never see host paths.
func (a *BaseAgent) renderParams(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	params := string(data)
	if a.repoDir != "" {
		params = strings.ReplaceAll(params, a.repoDir, "")
	}
	return params
}

// toolContext builds the per-call environment handed to context-needing
// tools. A fresh value per dispatch; the referenced services are shared.
func (a *BaseAgent) toolContext() *tools.Context {
	return &tools.Context{
		LLM:             a.llm,
		SpecializedLLMs: a.specialized,
		History:         &a.history,
		AgentName:       a.name,
		Iteration:       a.iter,
		Folder:          a.repoDir,
		Provider:        a.provider,
		Adapter:         a.adapter,
		Language:        a.language,
		StepID:          a.stepID,
		Log:             a.events,
		Prompts:         a.prompts,
		Dispatcher:      a.dispatcher,
		Todos:           a.todos,
		Spawn:           a.spawn,
	}
}

// spawn runs a task-tool sub-agent: same services and target, its own
// history, a tighter iteration budget, and events nested under the parent's
// step. Depth is capped so delegation cannot recurse away the scan.
func (a *BaseAgent) spawn(ctx context.Context, req tools.SpawnRequest) (string, error) {
	if a.depth >= maxSpawnDepth {
		return "", fmt.Errorf("sub-agent depth limit (%d) reached", maxSpawnDepth)
	}

	name := req.Name
	if name == "" {
		name = "subagent"
	}
	stepID := req.StepID
	if stepID == "" {
		stepID = a.stepID
	}

	sub, err := New(Config{
		Name:            name,
		Instruction:     req.Instruction,
		LLM:             a.llm,
		SpecializedLLMs: a.specialized,
		StepID:          stepID,
		Provider:        a.provider,
		Adapter:         a.adapter,
		Language:        a.language,
		RepoDir:         a.repoDir,
		MaxIter:         subAgentMaxIter,
		Dispatcher:      a.dispatcher,
		Prompts:         a.prompts,
		Log:             a.events,
		Todos:           a.todos,
	})
	if err != nil {
		return "", err
	}
	sub.depth = a.depth + 1

	if err := sub.Initialize(); err != nil {
		return "", err
	}
	sub.AddUserMessage(req.Prompt)
	return sub.Run(ctx)
}

func continueBrief(language string) string {
	if language == "en" {
		return "I will continue to execute"
	}
	return "我将继续执行"
}
