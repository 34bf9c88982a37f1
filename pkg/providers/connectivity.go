package providers

import (
	"context"
	"fmt"
)

// ConnectivityPrompt is the minimal probe sent to verify a target answers
// at all before a scan starts.
const ConnectivityPrompt = "Only return 1"

// CheckConnectivity loads the first target from a provider config file and
// sends it a probe. An empty prompt falls back to ConnectivityPrompt. The
// returned Result carries the full exchange detail; the error covers
// file-level problems only.
func (c *Client) CheckConnectivity(ctx context.Context, configFile, prompt string) (Result, error) {
	targets, err := LoadTargets(configFile)
	if err != nil {
		return Result{}, err
	}
	if len(targets) == 0 {
		return Result{}, fmt.Errorf("configuration file contains no providers: %s", configFile)
	}
	if prompt == "" {
		prompt = ConnectivityPrompt
	}
	return c.Call(ctx, targets[0], prompt), nil
}
