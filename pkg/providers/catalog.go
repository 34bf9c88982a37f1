package providers

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed providers.yaml
var defaultCatalogYAML []byte

// Catalog is the static registry of known provider types, grouped by wire
// format, plus the pricing table. It is resolved once at load time and
// immutable afterwards, so concurrent readers need no locking.
type Catalog struct {
	types   map[string]TypeConfig
	pricing map[string]ModelPricing
}

// TypeConfig is the fully merged view of one provider type: the format
// group's wire settings overlaid on the type entry.
type TypeConfig struct {
	Name                string
	APIFormat           string
	RequestBodyTemplate map[string]any
	ResponsePath        string
	AuthType            string
	AuthParamName       string
	ExtraHeaders        map[string]string
	Endpoint            string
	EnvKeys             []string
	BaseURLEnv          string
	BaseURL             string
	DefaultModel        string
	ScanEndpoints       []string
}

// ModelPricing is the per-1K-token price pair for one model prefix.
type ModelPricing struct {
	Input  float64 `yaml:"input" json:"input"`
	Output float64 `yaml:"output" json:"output"`
}

type catalogFile struct {
	Providers map[string]formatGroup  `yaml:"providers"`
	Pricing   map[string]ModelPricing `yaml:"pricing"`
}

type formatGroup struct {
	APIFormat           string               `yaml:"api_format"`
	RequestBodyTemplate map[string]any       `yaml:"request_body_template"`
	ResponsePath        string               `yaml:"response_path"`
	AuthType            string               `yaml:"auth_type"`
	AuthParamName       string               `yaml:"auth_param_name"`
	ExtraHeaders        map[string]string    `yaml:"extra_headers"`
	Providers           map[string]typeEntry `yaml:"providers"`
}

type typeEntry struct {
	Endpoint      string            `yaml:"endpoint"`
	EnvKeys       []string          `yaml:"env_keys"`
	BaseURLEnv    string            `yaml:"base_url_env"`
	BaseURL       string            `yaml:"base_url"`
	DefaultModel  string            `yaml:"default_model"`
	ScanEndpoints []string          `yaml:"scan_endpoints"`
	AuthType      string            `yaml:"auth_type"`
	ExtraHeaders  map[string]string `yaml:"extra_headers"`
}

// DefaultCatalog parses the embedded providers.yaml.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog file from disk, overriding the embedded
// default.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML and resolves every type entry against
// its format group.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse provider catalog: %w", err)
	}

	catalog := &Catalog{
		types:   make(map[string]TypeConfig),
		pricing: file.Pricing,
	}
	if catalog.pricing == nil {
		catalog.pricing = make(map[string]ModelPricing)
	}

	for _, group := range file.Providers {
		for name, entry := range group.Providers {
			catalog.types[name] = mergeTypeConfig(name, group, entry)
		}
	}
	return catalog, nil
}

// mergeTypeConfig overlays format-group settings on a type entry. Group
// values win for auth and headers so a format behaves uniformly across its
// providers; the entry keeps endpoint, credentials, and defaults.
func mergeTypeConfig(name string, group formatGroup, entry typeEntry) TypeConfig {
	merged := TypeConfig{
		Name:                name,
		APIFormat:           group.APIFormat,
		RequestBodyTemplate: group.RequestBodyTemplate,
		ResponsePath:        group.ResponsePath,
		AuthType:            group.AuthType,
		AuthParamName:       group.AuthParamName,
		Endpoint:            entry.Endpoint,
		EnvKeys:             entry.EnvKeys,
		BaseURLEnv:          entry.BaseURLEnv,
		BaseURL:             entry.BaseURL,
		DefaultModel:        entry.DefaultModel,
		ScanEndpoints:       entry.ScanEndpoints,
	}
	if merged.APIFormat == "" {
		merged.APIFormat = "custom"
	}
	if merged.AuthType == "" {
		merged.AuthType = entry.AuthType
	}
	if merged.AuthType == "" {
		merged.AuthType = "bearer"
	}

	if len(entry.ExtraHeaders) > 0 || len(group.ExtraHeaders) > 0 {
		headers := make(map[string]string, len(entry.ExtraHeaders)+len(group.ExtraHeaders))
		for k, v := range entry.ExtraHeaders {
			headers[k] = v
		}
		for k, v := range group.ExtraHeaders {
			headers[k] = v
		}
		merged.ExtraHeaders = headers
	}
	return merged
}

// Type looks up the merged configuration for a provider type name.
func (c *Catalog) Type(name string) (TypeConfig, bool) {
	tc, ok := c.types[name]
	return tc, ok
}

// Types returns all known provider type names, sorted.
func (c *Catalog) Types() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pricing finds the price pair whose key matches the lowercased model name.
// The longest matching key wins, so "gpt-4o-mini" beats "gpt-4o" for
// gpt-4o-mini deployments.
func (c *Catalog) Pricing(model string) (ModelPricing, bool) {
	lower := strings.ToLower(model)
	var best string
	found := false
	for key := range c.pricing {
		if strings.Contains(lower, key) && len(key) > len(best) {
			best = key
			found = true
		}
	}
	if !found {
		return ModelPricing{}, false
	}
	return c.pricing[best], true
}

// Cost computes the call cost from token usage and the pricing table,
// rounded to 6 decimals. The second return reports whether a price was
// found for the model.
func (c *Catalog) Cost(model string, usage map[string]any) (float64, bool) {
	pricing, ok := c.Pricing(model)
	if !ok || usage == nil {
		return 0, false
	}
	prompt := usageTokens(usage, "prompt_tokens", "input_tokens")
	completion := usageTokens(usage, "completion_tokens", "output_tokens")
	cost := prompt/1000*pricing.Input + completion/1000*pricing.Output
	return math.Round(cost*1e6) / 1e6, true
}

func usageTokens(usage map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if v := asNumber(usage[key]); v != 0 {
			return v
		}
	}
	return 0
}
