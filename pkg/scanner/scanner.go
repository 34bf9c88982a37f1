// Package scanner drives a full security scan end to end: the three
// pipeline stages in order, language statistics over the scanned repo,
// report assembly, and publication on the scan event stream.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentscan/agentscan/pkg/agent"
	"github.com/agentscan/agentscan/pkg/llm"
	"github.com/agentscan/agentscan/pkg/observability"
	"github.com/agentscan/agentscan/pkg/pipeline"
	"github.com/agentscan/agentscan/pkg/prompts"
	"github.com/agentscan/agentscan/pkg/providers"
	"github.com/agentscan/agentscan/pkg/report"
	"github.com/agentscan/agentscan/pkg/scanlog"
	"github.com/agentscan/agentscan/pkg/tools"
)

// Config collects everything a scan needs: the evaluation LLM, shared tool
// dispatcher, prompt store, event emitter, and the target agent.
type Config struct {
	LLM             llm.LLM
	SpecializedLLMs map[string]llm.LLM
	Dispatcher      *tools.Dispatcher
	Prompts         *prompts.Store
	Log             *scanlog.Emitter
	Adapter         *providers.Client
	Provider        *providers.Options // target agent; nil for repo-only scans
	Language        string             // report output language, "zh" by default
	MaxIter         int                // per-stage iteration budget (0 = agent default)
}

// Scanner coordinates the full scan lifecycle.
type Scanner struct {
	pipeline *pipeline.Pipeline
	llm      llm.LLM
	provider *providers.Options
	events   *scanlog.Emitter
	language string
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a scanner and its pipeline. LLM, Dispatcher, and Prompts are
// required.
func New(cfg Config) (*Scanner, error) {
	events := cfg.Log
	if events == nil {
		events = scanlog.NewStdout()
	}
	language := cfg.Language
	if language == "" {
		language = "zh"
	}

	pipe, err := pipeline.New(pipeline.Config{
		LLM:             cfg.LLM,
		SpecializedLLMs: cfg.SpecializedLLMs,
		Dispatcher:      cfg.Dispatcher,
		Prompts:         cfg.Prompts,
		Log:             events,
		Adapter:         cfg.Adapter,
		Language:        language,
		MaxIter:         cfg.MaxIter,
	})
	if err != nil {
		return nil, err
	}

	return &Scanner{
		pipeline: pipe,
		llm:      cfg.LLM,
		provider: cfg.Provider,
		events:   events,
		language: language,
		logger:   slog.Default().With("component", "scanner"),
		now:      time.Now,
	}, nil
}

// Scan runs the three-stage scan against repoDir and returns the final
// report. prompt carries extra operator instructions into every stage. A
// Stage-1 or Stage-3 failure aborts the scan with an error event and no
// report; Stage-2 worker failures are absorbed by the pipeline.
func (s *Scanner) Scan(ctx context.Context, repoDir, prompt string) (*report.AgentSecurityReport, error) {
	tracer := observability.GetTracer("agentscan.scanner")
	ctx, span := tracer.Start(ctx, observability.SpanScanRun)
	defer span.End()
	if s.provider != nil {
		span.SetAttributes(attribute.String(observability.AttrProviderID, s.provider.ID))
	}

	start := s.now()
	totalDialogue := 0

	recon, reconStats, err := s.pipeline.ExecuteStage(ctx, pipeline.Stage{
		ID:       "1",
		Name:     "Information Collection",
		Template: "project_summary",
		Language: s.language,
	}, repoDir, prompt, s.provider, nil)
	if err != nil {
		return nil, s.fail(span, "information_collection", err)
	}
	totalDialogue += reconStats["dialogue"]
	s.logger.Info("stage 1 complete", "dialogue_calls", reconStats["dialogue"])

	detection, detectionStats, err := s.pipeline.RunParallelDetection(ctx, recon, repoDir, prompt, s.provider)
	if err != nil {
		return nil, s.fail(span, "parallel_detection", err)
	}
	totalDialogue += detectionStats["dialogue"]
	s.logger.Info("stage 2 complete", "dialogue_calls", detectionStats["dialogue"])

	review, _, err := s.pipeline.ExecuteStage(ctx, pipeline.Stage{
		ID:       "3",
		Name:     "Vulnerability Review",
		Template: "agent_security_reviewer",
		Language: s.language,
	}, repoDir, prompt, s.provider, []agent.ContextItem{
		{Key: "Vulnerability Detection Report", Value: detection},
	})
	if err != nil {
		return nil, s.fail(span, "vulnerability_review", err)
	}

	end := s.now()
	s.logger.Info("scan complete",
		"elapsed_min", fmt.Sprintf("%.2f", end.Sub(start).Minutes()))

	agentType, agentName := targetIdentity(s.provider)

	rep := report.BuildFromXML(review, report.Metadata{
		AgentName:         agentName,
		AgentType:         agentType,
		ModelName:         s.llm.Model(),
		Plugins:           []string{},
		StartTime:         start.Unix(),
		EndTime:           end.Unix(),
		TotalTests:        totalDialogue,
		ReportDescription: recon,
	})
	rep.Language = TopLanguage(AnalyzeLanguages(repoDir))

	s.events.ResultUpdate(rep)
	span.SetStatus(codes.Ok, "")
	return rep, nil
}

// fail publishes a fatal stage failure on the event stream and returns it
// as a ScanError.
func (s *Scanner) fail(span trace.Span, action string, err error) error {
	scanErr := NewScanError("pipeline", action, "stage aborted", err)
	s.events.Error(scanErr.Error())
	span.RecordError(scanErr)
	span.SetStatus(codes.Error, scanErr.Error())
	return scanErr
}

// targetIdentity derives the report's agent_type and agent_name from the
// target provider: type is the ID prefix before the first ":", name is the
// label when set.
func targetIdentity(provider *providers.Options) (agentType, agentName string) {
	if provider == nil || provider.ID == "" {
		return "", ""
	}
	agentType = provider.ID
	if idx := strings.Index(agentType, ":"); idx >= 0 {
		agentType = agentType[:idx]
	}
	return agentType, provider.Label
}
