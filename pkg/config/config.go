// Package config defines the scanner's own configuration: the evaluation
// LLM, scan limits, logging, and tracing. Target agents are configured
// separately through a provider file (see pkg/providers).
package config

import (
	"fmt"
)

// Config is the root scanner configuration, loaded from an optional YAML
// file. Every section has working defaults so a bare `agentscan scan` only
// needs OPENAI_API_KEY in the environment.
type Config struct {
	// LLM configures the evaluation model that drives the scan agents.
	LLM LLMConfig `yaml:"llm,omitempty" json:"llm,omitempty" jsonschema:"title=LLM,description=Evaluation LLM configuration"`

	// Scan configures pipeline limits and report output.
	Scan ScanConfig `yaml:"scan,omitempty" json:"scan,omitempty" jsonschema:"title=Scan,description=Scan pipeline settings"`

	// Logging configures diagnostic logging on stderr.
	Logging LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" jsonschema:"title=Logging,description=Diagnostic logging settings"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty" jsonschema:"title=Tracing,description=OpenTelemetry tracing settings"`
}

// SetDefaults applies default values to all sections.
func (c *Config) SetDefaults() {
	c.LLM.SetDefaults()
	c.Scan.SetDefaults()
	c.Logging.SetDefaults()
	c.Tracing.SetDefaults()
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}
