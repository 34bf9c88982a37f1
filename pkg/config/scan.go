package config

import (
	"fmt"
	"strings"
)

// ScanConfig configures pipeline limits and report output.
type ScanConfig struct {
	// MaxIter caps the reasoning iterations of each scan agent.
	MaxIter int `yaml:"max_iter,omitempty" json:"max_iter,omitempty" jsonschema:"title=Max Iterations,description=Iteration cap per scan agent,minimum=1,default=80"`

	// Output is an optional path for the final report JSON. The report is
	// always published on the event stream regardless.
	Output string `yaml:"output,omitempty" json:"output,omitempty" jsonschema:"title=Output,description=Optional report JSON output path"`

	// PromptDir is the root of the prompt assets (system templates, skills,
	// agent templates). When empty the scanner looks for a prompt/ directory
	// next to the executable, then under the working directory.
	PromptDir string `yaml:"prompt_dir,omitempty" json:"prompt_dir,omitempty" jsonschema:"title=Prompt Directory,description=Override directory for prompt assets"`
}

// SetDefaults applies default values.
func (c *ScanConfig) SetDefaults() {
	if c.MaxIter == 0 {
		c.MaxIter = 80
	}
}

// Validate checks the scan configuration.
func (c *ScanConfig) Validate() error {
	if c.MaxIter < 1 {
		return fmt.Errorf("max_iter must be at least 1")
	}
	return nil
}

// LoggingConfig configures diagnostic logging. Logs go to stderr so stdout
// stays reserved for the scan event stream.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"title=Level,description=Minimum log level,enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// Format selects the output format (simple, verbose).
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,description=Log output format,enum=simple,enum=verbose,default=simple"`

	// File redirects logs to a file instead of stderr.
	File string `yaml:"file,omitempty" json:"file,omitempty" jsonschema:"title=File,description=Optional log file path"`
}

// SetDefaults applies default values.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Validate checks the logging configuration.
func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid level %q (valid: debug, info, warn, error)", c.Level)
	}

	switch c.Format {
	case "simple", "verbose":
	default:
		return fmt.Errorf("invalid format %q (valid: simple, verbose)", c.Format)
	}

	return nil
}

// TracingConfig configures OpenTelemetry tracing for scan runs.
type TracingConfig struct {
	// Enabled turns on tracing. Disabled installs a noop tracer.
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Enable OpenTelemetry tracing,default=false"`

	// Exporter selects the span exporter (otlp, stdout).
	Exporter string `yaml:"exporter,omitempty" json:"exporter,omitempty" jsonschema:"title=Exporter,description=Span exporter type,enum=otlp,enum=stdout,default=otlp"`

	// Endpoint is the OTLP gRPC collector endpoint.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" jsonschema:"title=Endpoint,description=OTLP collector endpoint,default=localhost:4317"`

	// SamplingRate controls the fraction of traces sampled (0.0 - 1.0).
	SamplingRate float64 `yaml:"sampling_rate,omitempty" json:"sampling_rate,omitempty" jsonschema:"title=Sampling Rate,description=Trace sampling rate,minimum=0,maximum=1,default=1"`

	// ServiceName identifies this scanner in traces.
	ServiceName string `yaml:"service_name,omitempty" json:"service_name,omitempty" jsonschema:"title=Service Name,description=Service name in traces,default=agentscan"`
}

// SetDefaults applies default values.
func (c *TracingConfig) SetDefaults() {
	if c.Exporter == "" {
		c.Exporter = "otlp"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
	if c.ServiceName == "" {
		c.ServiceName = "agentscan"
	}
}

// Validate checks the tracing configuration.
func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	switch c.Exporter {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("invalid exporter %q (valid: otlp, stdout)", c.Exporter)
	}

	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be between 0 and 1")
	}

	return nil
}
