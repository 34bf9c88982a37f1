package providers

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}

	openai, ok := catalog.Type("openai")
	if !ok {
		t.Fatal("catalog missing openai")
	}
	if openai.Endpoint != "/chat/completions" {
		t.Errorf("openai endpoint = %q", openai.Endpoint)
	}
	if openai.AuthType != "bearer" {
		t.Errorf("openai auth = %q", openai.AuthType)
	}
	if openai.DefaultModel != "gpt-4o-mini" {
		t.Errorf("openai default model = %q", openai.DefaultModel)
	}
	if openai.APIFormat != "openai" {
		t.Errorf("openai api format = %q", openai.APIFormat)
	}
	if openai.ResponsePath != "choices[0].message.content" {
		t.Errorf("openai response path = %q", openai.ResponsePath)
	}
	if len(openai.ScanEndpoints) == 0 {
		t.Error("openai scan endpoints empty")
	}

	anthropic, ok := catalog.Type("anthropic")
	if !ok {
		t.Fatal("catalog missing anthropic")
	}
	if anthropic.AuthType != "x-api-key" {
		t.Errorf("anthropic auth = %q", anthropic.AuthType)
	}
	if anthropic.ExtraHeaders["anthropic-version"] != "2023-06-01" {
		t.Errorf("anthropic extra headers = %v", anthropic.ExtraHeaders)
	}

	google, ok := catalog.Type("google")
	if !ok {
		t.Fatal("catalog missing google")
	}
	if google.AuthType != "query_param" || google.AuthParamName != "key" {
		t.Errorf("google auth = %q/%q", google.AuthType, google.AuthParamName)
	}

	ollama, ok := catalog.Type("ollama")
	if !ok {
		t.Fatal("catalog missing ollama")
	}
	if len(ollama.EnvKeys) != 0 {
		t.Errorf("ollama env keys = %v, want none", ollama.EnvKeys)
	}

	for _, name := range []string{"deepseek", "moonshot", "qwen", "zhipu", "dify", "dify-workflow", "coze-cn", "coze-com"} {
		if _, ok := catalog.Type(name); !ok {
			t.Errorf("catalog missing %s", name)
		}
	}
}

func TestCatalogTypesSorted(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	names := catalog.Types()
	if len(names) < 5 {
		t.Fatalf("Types() = %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Types() not sorted: %v", names)
		}
	}
}

func TestCatalogPricingLongestMatch(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}

	mini, ok := catalog.Pricing("gpt-4o-mini-2024-07-18")
	if !ok {
		t.Fatal("no pricing for gpt-4o-mini")
	}
	if mini.Input != 0.00015 {
		t.Errorf("gpt-4o-mini input price = %v, want the mini tier", mini.Input)
	}

	full, ok := catalog.Pricing("GPT-4o")
	if !ok {
		t.Fatal("no pricing for gpt-4o")
	}
	if full.Input != 0.0025 {
		t.Errorf("gpt-4o input price = %v", full.Input)
	}

	if _, ok := catalog.Pricing("totally-unknown"); ok {
		t.Error("expected no pricing for unknown model")
	}
}

func TestCatalogCost(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}

	cost, ok := catalog.Cost("gpt-4o-mini", map[string]any{
		"prompt_tokens":     float64(10),
		"completion_tokens": float64(2),
	})
	if !ok {
		t.Fatal("Cost() found no pricing")
	}
	if math.Abs(cost-0.000003) > 1e-12 {
		t.Errorf("cost = %v, want 0.000003", cost)
	}

	// Anthropic-style usage keys work too.
	cost, ok = catalog.Cost("claude-3-5-haiku-20241022", map[string]any{
		"input_tokens":  float64(1000),
		"output_tokens": float64(1000),
	})
	if !ok {
		t.Fatal("Cost() found no pricing for claude")
	}
	if math.Abs(cost-0.0048) > 1e-12 {
		t.Errorf("cost = %v, want 0.0048", cost)
	}

	if _, ok := catalog.Cost("unknown-model", map[string]any{"prompt_tokens": float64(1)}); ok {
		t.Error("expected no cost for unpriced model")
	}
	if _, ok := catalog.Cost("gpt-4o-mini", nil); ok {
		t.Error("expected no cost without usage")
	}
}

func TestLoadCatalogOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `providers:
  custom_format:
    api_format: openai
    auth_type: token
    auth_param_name: tok
    extra_headers:
      X-Custom: "1"
    providers:
      internal:
        endpoint: /v1/complete
        env_keys: [INTERNAL_KEY]
        base_url: https://internal.example.com
        default_model: internal-1
pricing:
  internal-1: {input: 0.001, output: 0.002}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	internal, ok := catalog.Type("internal")
	if !ok {
		t.Fatal("catalog missing internal")
	}
	if internal.AuthType != "token" {
		t.Errorf("auth = %q, want token", internal.AuthType)
	}
	if internal.ExtraHeaders["X-Custom"] != "1" {
		t.Errorf("extra headers = %v", internal.ExtraHeaders)
	}
	if _, ok := catalog.Type("openai"); ok {
		t.Error("override catalog should not inherit embedded types")
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadCatalog() error = nil, want failure")
	}
}

func TestMergeTypeConfigEntryAuthFallback(t *testing.T) {
	group := formatGroup{APIFormat: "custom"}
	entry := typeEntry{AuthType: "x-api-key", Endpoint: "/x"}
	merged := mergeTypeConfig("local", group, entry)
	if merged.AuthType != "x-api-key" {
		t.Errorf("auth = %q, want entry-level fallback", merged.AuthType)
	}

	merged = mergeTypeConfig("local", formatGroup{}, typeEntry{})
	if merged.AuthType != "bearer" {
		t.Errorf("auth = %q, want bearer default", merged.AuthType)
	}
	if merged.APIFormat != "custom" {
		t.Errorf("api format = %q, want custom default", merged.APIFormat)
	}
}
