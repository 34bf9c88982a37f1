// Command agentscan runs automated security scans against AI agent
// repositories and live agent endpoints.
//
// Usage:
//
//	agentscan scan --repo ./my-agent --client-file providers.yaml
//	agentscan connect --client-file providers.yaml
//	agentscan providers list
//
// Scan progress and the final report are emitted as JSON lines on stdout;
// diagnostics go to stderr so the event stream stays machine-readable.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/agentscan/agentscan"
	"github.com/agentscan/agentscan/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Scan      ScanCmd      `cmd:"" help:"Run a security scan against an agent repository."`
	Connect   ConnectCmd   `cmd:"" help:"Probe connectivity to the first target in a provider file."`
	Providers ProvidersCmd `cmd:"" help:"Inspect and validate provider targets."`
	Schema    SchemaCmd    `cmd:"" help:"Generate JSON Schema for the scanner configuration."`
	Version   VersionCmd   `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to scanner config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := agentscan.GetVersion()
	// Module version from build info wins when installed via go install.
	if bi, ok := debug.ReadBuildInfo(); ok {
		if bi.Main.Version != "(devel)" && bi.Main.Version != "" {
			info.Version = bi.Main.Version
		}
	}
	fmt.Println(info.String())
	return nil
}

// loadScannerConfig reads the scanner configuration, or builds the default
// when no file was given. Both paths validate, so a missing OPENAI_API_KEY
// surfaces here rather than mid-scan.
func loadScannerConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
		return cfg, nil
	}
	return config.Load(path)
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentscan"),
		kong.Description("agentscan - automated security scanner for AI agents"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
