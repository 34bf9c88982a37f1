// Package pipeline runs the three-stage scan: a sequential
// information-collection stage, a concurrent fan-out of detection skill
// workers, and a sequential review stage. Stage order is strict; only
// Stage 2 is parallel, and its workers share one semaphore so the target
// agent never sees more than a bounded number of simultaneous probes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/agentscan/agentscan/pkg/agent"
	"github.com/agentscan/agentscan/pkg/llm"
	"github.com/agentscan/agentscan/pkg/observability"
	"github.com/agentscan/agentscan/pkg/prompts"
	"github.com/agentscan/agentscan/pkg/providers"
	"github.com/agentscan/agentscan/pkg/scanlog"
	"github.com/agentscan/agentscan/pkg/tools"
)

// DetectionSkills lists the Stage-2 skills in launch order. Each entry
// names a skill package under prompt/skills/; workers load the briefing
// themselves through the load_skill tool.
var DetectionSkills = []string{
	"data-leakage-detection",
	"tool-abuse-detection",
	"indirect-injection-detection",
	"authorization-bypass-detection",
}

// workerConcurrency caps how many skill workers exercise the target at
// once. Hosted platforms (Dify Cloud, Coze) rate-limit aggressively; four
// keeps the request rate predictable.
const workerConcurrency = 4

// noFindings is the Stage-2 result when no worker confirmed anything.
const noFindings = "No vulnerabilities confirmed."

// Stage describes one sequential pipeline stage.
type Stage struct {
	ID       string // scan-log step ID ("1", "3")
	Name     string // human-readable title shown in the event stream
	Template string // prompt/system template holding the stage instruction
	Language string // output language for the stage agent ("zh" or "en")
}

// Config collects the services every stage agent shares.
type Config struct {
	LLM             llm.LLM
	SpecializedLLMs map[string]llm.LLM
	Dispatcher      *tools.Dispatcher
	Prompts         *prompts.Store
	Log             *scanlog.Emitter
	Adapter         *providers.Client
	Language        string   // worker output language, "zh" by default
	MaxIter         int      // per-stage iteration budget (0 = agent default)
	Skills          []string // detection skills; defaults to DetectionSkills
}

// Pipeline executes scan stages. One pipeline serves one scan; the
// semaphore it owns is the only coordination between Stage-2 workers.
type Pipeline struct {
	llm             llm.LLM
	specializedLLMs map[string]llm.LLM
	dispatcher      *tools.Dispatcher
	prompts         *prompts.Store
	events          *scanlog.Emitter
	adapter         *providers.Client
	language        string
	maxIter         int
	skills          []string
	sem             *semaphore.Weighted
	logger          *slog.Logger
}

// New builds a pipeline. LLM, Dispatcher, and Prompts are required.
func New(cfg Config) (*Pipeline, error) {
	if cfg.LLM == nil {
		return nil, errors.New("pipeline: LLM is required")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("pipeline: Dispatcher is required")
	}
	if cfg.Prompts == nil {
		return nil, errors.New("pipeline: Prompts is required")
	}

	skills := cfg.Skills
	if len(skills) == 0 {
		skills = DetectionSkills
	}
	language := cfg.Language
	if language == "" {
		language = "zh"
	}
	events := cfg.Log
	if events == nil {
		events = scanlog.NewStdout()
	}

	return &Pipeline{
		llm:             cfg.LLM,
		specializedLLMs: cfg.SpecializedLLMs,
		dispatcher:      cfg.Dispatcher,
		prompts:         cfg.Prompts,
		events:          events,
		adapter:         cfg.Adapter,
		language:        language,
		maxIter:         cfg.MaxIter,
		skills:          skills,
		sem:             semaphore.NewWeighted(workerConcurrency),
		logger:          slog.Default().With("component", "pipeline"),
	}, nil
}

// ExecuteStage runs one sequential stage to completion and returns its
// result text along with per-tool usage counts.
func (p *Pipeline) ExecuteStage(ctx context.Context, stage Stage, repoDir, prompt string, provider *providers.Options, contextData []agent.ContextItem) (string, map[string]int, error) {
	instruction, err := p.prompts.Load(stage.Template)
	if err != nil {
		return "", nil, fmt.Errorf("stage %s: load template %q: %w", stage.ID, stage.Template, err)
	}

	tracer := observability.GetTracer("agentscan.pipeline")
	ctx, span := tracer.Start(ctx, observability.SpanScanStage,
		trace.WithAttributes(
			attribute.String(observability.AttrStageID, stage.ID),
			attribute.String(observability.AttrAgentName, stage.Name),
		))
	defer span.End()

	text, stats, err := agent.RunAgent(ctx, agent.RunParams{
		Description:     stage.Name,
		Instruction:     instruction,
		LLM:             p.llm,
		SpecializedLLMs: p.specializedLLMs,
		Prompt:          prompt,
		StageID:         stage.ID,
		Provider:        provider,
		Adapter:         p.adapter,
		Language:        stage.Language,
		RepoDir:         repoDir,
		ContextData:     contextData,
		MaxIter:         p.maxIter,
		Dispatcher:      p.dispatcher,
		Prompts:         p.prompts,
		Log:             p.events,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", stats, err
	}
	span.SetStatus(codes.Ok, "")
	return text, stats, nil
}

// workerOutcome is one skill worker's return: its raw output and tool
// usage counts, or the error that took it down.
type workerOutcome struct {
	text  string
	stats map[string]int
	err   error
}

// RunParallelDetection fans one skill worker out per detection skill and
// merges their confirmed findings. A failed worker is logged and skipped;
// it never aborts the others. The returned error covers only setup (the
// skill_runner template failing to load).
func (p *Pipeline) RunParallelDetection(ctx context.Context, reconReport, repoDir, prompt string, provider *providers.Options) (string, map[string]int, error) {
	instruction, err := p.prompts.Load("skill_runner")
	if err != nil {
		return "", nil, fmt.Errorf("stage 2: load template %q: %w", "skill_runner", err)
	}

	tracer := observability.GetTracer("agentscan.pipeline")
	ctx, span := tracer.Start(ctx, observability.SpanScanStage,
		trace.WithAttributes(attribute.String(observability.AttrStageID, "2")))
	defer span.End()

	p.logger.Info("starting parallel detection",
		"workers", len(p.skills),
		"concurrency", workerConcurrency)

	outcomes := make([]workerOutcome, len(p.skills))
	var wg sync.WaitGroup
	for i, skill := range p.skills {
		wg.Add(1)
		go func(index int, skill string) {
			defer wg.Done()
			outcomes[index] = p.runSkillWorker(ctx, instruction, skill, index, reconReport, repoDir, prompt, provider)
		}(i, skill)
	}
	wg.Wait()

	merged, stats := p.mergeOutcomes(outcomes)

	p.logger.Info("parallel detection complete",
		"confirmed", strings.Count(merged, "<vuln>"),
		"workers", len(p.skills))
	span.SetStatus(codes.Ok, "")
	return merged, stats, nil
}

// runSkillWorker executes one detection skill under the shared concurrency
// cap.
func (p *Pipeline) runSkillWorker(ctx context.Context, instruction, skill string, index int, reconReport, repoDir, prompt string, provider *providers.Options) workerOutcome {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return workerOutcome{err: err}
	}
	defer p.sem.Release(1)

	// The worker's last assistant turn already carries the <vuln> blocks;
	// the finish-formatting round would only paraphrase them.
	formatOnFinish := false

	text, stats, err := agent.RunAgent(ctx, agent.RunParams{
		Description:     "Skill Worker: " + skill,
		Instruction:     instruction,
		LLM:             p.llm,
		SpecializedLLMs: p.specializedLLMs,
		Prompt:          prompt,
		StageID:         workerStageID(index),
		Provider:        provider,
		Adapter:         p.adapter,
		Language:        p.language,
		RepoDir:         repoDir,
		ContextData: []agent.ContextItem{
			{Key: "Information Collection Report", Value: reconReport},
			{Key: "Assigned Skill", Value: skill},
		},
		MaxIter:        p.maxIter,
		FormatOnFinish: &formatOnFinish,
		Dispatcher:     p.dispatcher,
		Prompts:        p.prompts,
		Log:            p.events,
	})
	return workerOutcome{text: text, stats: stats, err: err}
}

// mergeOutcomes folds worker results into one detection report: every
// <vuln> block from every successful worker in launch order, blank-line
// separated, plus summed per-tool usage counts.
func (p *Pipeline) mergeOutcomes(outcomes []workerOutcome) (string, map[string]int) {
	var blocks []string
	stats := make(map[string]int)

	for i, oc := range outcomes {
		if oc.err != nil {
			p.logger.Warn("skill worker failed and will be skipped",
				"skill", p.skills[i], "error", oc.err)
			continue
		}
		blocks = append(blocks, extractVulnBlocks(oc.text)...)
		for tool, count := range oc.stats {
			stats[tool] += count
		}
	}

	if len(blocks) == 0 {
		return noFindings, stats
	}
	return strings.Join(blocks, "\n\n"), stats
}

var vulnBlockPattern = regexp.MustCompile(`(?s)<vuln>.*?</vuln>`)

// extractVulnBlocks pulls every <vuln>…</vuln> block out of a worker's raw
// output. Non-greedy so consecutive blocks stay separate.
func extractVulnBlocks(text string) []string {
	return vulnBlockPattern.FindAllString(text, -1)
}

// workerStageID derives the scan-log step ID for the worker at index:
// "2a", "2b", …
func workerStageID(index int) string {
	return fmt.Sprintf("2%c", 'a'+index)
}
