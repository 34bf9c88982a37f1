package main

import (
	"context"
	"fmt"

	"github.com/agentscan/agentscan/pkg/providers"
	"github.com/agentscan/agentscan/pkg/scanlog"
)

// ConnectCmd sends a probe prompt to the first target in a provider file and
// publishes the exchange on the event stream. Exit status reflects whether
// the target answered.
type ConnectCmd struct {
	ClientFile string `name:"client-file" required:"" help:"Provider file describing the target agent endpoint (YAML or JSON)." type:"path"`
	Prompt     string `help:"Probe prompt sent to the target." default:"Only return 1"`
}

func (c *ConnectCmd) Run(cli *CLI) error {
	catalog, err := providers.DefaultCatalog()
	if err != nil {
		return fmt.Errorf("failed to load provider catalog: %w", err)
	}
	client := providers.NewClient(catalog)

	result, err := client.CheckConnectivity(context.Background(), c.ClientFile, c.Prompt)
	if err != nil {
		return err
	}

	scanlog.NewStdout().ResultUpdate(result)
	if !result.Success {
		return fmt.Errorf("connectivity check failed: %s", result.Message)
	}
	return nil
}
