package main

import (
	"fmt"

	"github.com/agentscan/agentscan/pkg/providers"
)

// ProvidersCmd groups provider inspection subcommands.
type ProvidersCmd struct {
	List     ProvidersListCmd     `cmd:"" help:"List known provider types from the catalog."`
	Validate ProvidersValidateCmd `cmd:"" help:"Validate the targets in a provider file without network calls."`
}

// ProvidersListCmd prints the provider types the catalog knows about.
type ProvidersListCmd struct {
	Catalog string `help:"Override the embedded provider catalog (YAML)." type:"path"`
}

func (c *ProvidersListCmd) Run(cli *CLI) error {
	catalog, err := loadCatalog(c.Catalog)
	if err != nil {
		return err
	}

	fmt.Println("Known provider types:")
	for _, name := range catalog.Types() {
		tc, _ := catalog.Type(name)
		line := fmt.Sprintf("  - %s (%s)", name, tc.APIFormat)
		if tc.DefaultModel != "" {
			line += fmt.Sprintf(", default model: %s", tc.DefaultModel)
		}
		fmt.Println(line)
	}
	return nil
}

// ProvidersValidateCmd checks every target in a provider file locally.
type ProvidersValidateCmd struct {
	ClientFile string `arg:"" name:"client-file" help:"Provider file to validate (YAML or JSON)." type:"path"`
}

func (c *ProvidersValidateCmd) Run(cli *CLI) error {
	targets, err := providers.LoadTargets(c.ClientFile)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("configuration file contains no providers: %s", c.ClientFile)
	}

	failures := 0
	for i, target := range targets {
		result := providers.ValidateTarget(target)
		if result.Success {
			fmt.Printf("  [%d] %s: valid\n", i+1, target.DisplayName())
		} else {
			failures++
			fmt.Printf("  [%d] %s: %s\n", i+1, target.DisplayName(), result.Message)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d target(s) failed validation", failures, len(targets))
	}
	fmt.Printf("%s: valid\n", c.ClientFile)
	return nil
}

// loadCatalog reads a catalog override, or returns the embedded default.
func loadCatalog(path string) (*providers.Catalog, error) {
	if path == "" {
		return providers.DefaultCatalog()
	}
	return providers.LoadCatalog(path)
}
