package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/agentscan/agentscan/pkg/llm"
	"github.com/agentscan/agentscan/pkg/observability"
	"github.com/agentscan/agentscan/pkg/prompts"
	"github.com/agentscan/agentscan/pkg/providers"
	"github.com/agentscan/agentscan/pkg/report"
	"github.com/agentscan/agentscan/pkg/scanlog"
	"github.com/agentscan/agentscan/pkg/scanner"
	"github.com/agentscan/agentscan/pkg/tools"
)

// ScanCmd runs the full three-stage scan against an agent repository and,
// when a client file is given, its live endpoint.
type ScanCmd struct {
	Repo       string `name:"repo" required:"" help:"Path to the agent repository to scan." type:"existingdir"`
	ClientFile string `name:"client-file" help:"Provider file describing the target agent endpoint (YAML or JSON)." type:"path"`
	Prompt     string `help:"Extra instructions forwarded to every scan stage."`
	Language   string `help:"Report language." enum:"zh,en" default:"zh"`
	Output     string `short:"o" help:"Write the final report JSON to this file." type:"path"`
}

func (c *ScanCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Interrupted, aborting scan...")
		cancel()
	}()

	cfg, err := loadScannerConfig(cli.Config)
	if err != nil {
		return err
	}

	provider, err := observability.InitGlobalTracer(ctx, observability.TracerConfig{
		Enabled:      cfg.Tracing.Enabled,
		ExporterType: cfg.Tracing.Exporter,
		EndpointURL:  cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		ServiceName:  cfg.Tracing.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if tp, ok := provider.(interface{ Shutdown(context.Context) error }); ok {
		defer tp.Shutdown(context.Background())
	}

	var target *providers.Options
	if c.ClientFile != "" {
		targets, err := providers.LoadTargets(c.ClientFile)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return fmt.Errorf("configuration file contains no providers: %s", c.ClientFile)
		}
		target = &targets[0]
		slog.Info("Target agent loaded", "id", target.ID, "label", target.Label)
	}

	catalog, err := providers.DefaultCatalog()
	if err != nil {
		return fmt.Errorf("failed to load provider catalog: %w", err)
	}

	counter, err := llm.NewTokenCounter(cfg.LLM.Model)
	if err != nil {
		slog.Warn("Token counter unavailable, tool output truncation disabled", "error", err)
		counter = nil
	}

	sc, err := scanner.New(scanner.Config{
		LLM:        llm.NewClient(cfg.LLM),
		Dispatcher: tools.NewDispatcher(tools.DefaultRegistry(), counter),
		Prompts:    prompts.NewStore(resolvePromptDir(cfg.Scan.PromptDir)),
		Log:        scanlog.NewStdout(),
		Adapter:    providers.NewClient(catalog),
		Provider:   target,
		Language:   c.Language,
		MaxIter:    cfg.Scan.MaxIter,
	})
	if err != nil {
		return err
	}

	rep, err := sc.Scan(ctx, c.Repo, c.Prompt)
	if err != nil {
		return err
	}

	output := c.Output
	if output == "" {
		output = cfg.Scan.Output
	}
	if output != "" {
		if err := writeReport(output, rep); err != nil {
			return err
		}
		slog.Info("Report written", "path", output)
	}
	return nil
}

// resolvePromptDir picks the prompt asset root: the configured directory,
// else prompt/ next to the executable, else prompt/ under the working
// directory.
func resolvePromptDir(configured string) string {
	if configured != "" {
		return configured
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Join(filepath.Dir(exe), "prompt")
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}
	return "prompt"
}

func writeReport(path string, rep *report.AgentSecurityReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
