package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/agentscan/agentscan/pkg/config"
)

// SchemaCmd generates JSON Schema from the scanner config structs, for
// editor completion and config tooling. Output goes to stdout so it can be
// redirected.
type SchemaCmd struct {
	Compact bool `help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		// Inline all definitions (no $ref) so consumers need no resolver.
		DoNotReference: true,
	}

	schema := reflector.Reflect(&config.Config{})

	schema.ID = "https://agentscan.dev/schemas/config.json"
	schema.Title = "Agentscan Configuration Schema"
	schema.Description = "Configuration schema for the agentscan security scanner"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	schema.Examples = []interface{}{
		map[string]interface{}{
			"llm": map[string]interface{}{
				"model":   "gpt-4o",
				"api_key": "${OPENAI_API_KEY}",
			},
			"scan": map[string]interface{}{
				"max_iter": 80,
				"output":   "report.json",
			},
		},
	}

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
