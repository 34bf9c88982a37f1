package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/agentscan/agentscan/pkg/providers"
)

// sensitivePatterns maps response keywords to finding labels. Order matters:
// findings are reported in table order so scan output is deterministic.
var sensitivePatterns = []struct {
	keyword string
	finding string
}{
	{"api_key", "API Key Exposure"},
	{"api_secret", "API Secret Exposure"},
	{"password", "Password Exposure"},
	{"token", "Token Exposure"},
	{"secret", "Secret Exposure"},
	{"private_key", "Private Key Exposure"},
	{"credential", "Credential Exposure"},
	{"database", "Database Configuration"},
	{"connection_string", "Connection String"},
	{"internal_", "Internal Configuration"},
	{"debug", "Debug Information"},
}

// EndpointScanResult is the outcome of probing one configuration endpoint.
type EndpointScanResult struct {
	Endpoint          string   `json:"endpoint"`
	Success           bool     `json:"success"`
	StatusCode        *int     `json:"status_code"`
	Response          any      `json:"response"`
	Error             *string  `json:"error"`
	SensitiveFindings []string `json:"sensitive_findings"`
}

// ScanResult aggregates an endpoint sweep against one target.
type ScanResult struct {
	ProviderType    string               `json:"provider_type"`
	BaseURL         string               `json:"base_url"`
	TotalEndpoints  int                  `json:"total_endpoints"`
	SuccessfulScans int                  `json:"successful_scans"`
	FailedScans     int                  `json:"failed_scans"`
	EndpointResults []EndpointScanResult `json:"endpoint_results"`
	Summary         string               `json:"summary"`
}

// endpointScanner sweeps a target's configuration endpoints. Which endpoints
// exist is configuration-driven: the catalog's scan_endpoints list per
// provider type, never a hardcoded set.
type endpointScanner struct {
	adapter *providers.Client
}

// ScanTarget probes every endpoint, or the caller-supplied override list.
func (s *endpointScanner) ScanTarget(ctx context.Context, target providers.Options, endpoints []string) ScanResult {
	providerID := strings.ToLower(target.ID)
	providerType := providerTypeOf(providerID)
	baseURL := scanBaseURL(target)

	if endpoints == nil {
		endpoints = s.catalogEndpoints(providerType, providerID, target)
	}

	if len(endpoints) == 0 {
		return ScanResult{
			ProviderType:    providerType,
			BaseURL:         baseURL,
			EndpointResults: []EndpointScanResult{},
			Summary:         "No scan_endpoints configured in providers.yaml for provider type: " + providerType,
		}
	}

	results := make([]EndpointScanResult, 0, len(endpoints))
	successful, failed := 0, 0
	for _, endpoint := range endpoints {
		result := s.scanEndpoint(ctx, target, baseURL, endpoint)
		results = append(results, result)
		if result.Success {
			successful++
		} else {
			failed++
		}
	}

	return ScanResult{
		ProviderType:    providerType,
		BaseURL:         baseURL,
		TotalEndpoints:  len(endpoints),
		SuccessfulScans: successful,
		FailedScans:     failed,
		EndpointResults: results,
		Summary:         fmt.Sprintf("Scanned %d endpoints: %d successful, %d failed", len(endpoints), successful, failed),
	}
}

func providerTypeOf(providerID string) string {
	if i := strings.Index(providerID, ":"); i >= 0 {
		return providerID[:i]
	}
	return providerID
}

func scanBaseURL(target providers.Options) string {
	if target.Config.APIBaseURL != "" {
		return strings.TrimRight(target.Config.APIBaseURL, "/")
	}
	if target.Config.URL != "" {
		return strings.TrimRight(target.Config.URL, "/")
	}
	return ""
}

// catalogEndpoints resolves the provider type's scan_endpoints, expanding
// {{bot_id}} placeholders. Endpoints whose placeholder cannot be resolved
// are dropped rather than probed with a literal placeholder.
func (s *endpointScanner) catalogEndpoints(providerType, providerID string, target providers.Options) []string {
	tc, ok := s.adapter.Catalog().Type(providerType)
	if !ok {
		return nil
	}

	var resolved []string
	for _, endpoint := range tc.ScanEndpoints {
		if strings.Contains(endpoint, "{{bot_id}}") {
			botID := scanBotID(providerID, target)
			if botID == "" {
				continue
			}
			endpoint = strings.ReplaceAll(endpoint, "{{bot_id}}", botID)
		}
		resolved = append(resolved, endpoint)
	}
	return resolved
}

// scanBotID pulls the bot identifier from "type:bot" IDs, falling back to
// config extra.
func scanBotID(providerID string, target providers.Options) string {
	if i := strings.Index(providerID, ":"); i >= 0 && i+1 < len(providerID) {
		return providerID[i+1:]
	}
	if v, ok := target.Config.Extra["bot_id"].(string); ok {
		return v
	}
	return ""
}

func (s *endpointScanner) scanEndpoint(ctx context.Context, target providers.Options, baseURL, endpoint string) EndpointScanResult {
	probe := providers.Options{
		ID: "http",
		Config: providers.Config{
			URL:               baseURL + endpoint,
			Method:            "GET",
			Headers:           scanAuthHeaders(target),
			TransformResponse: "json",
		},
	}

	result := s.adapter.Call(ctx, probe, "scan")

	out := EndpointScanResult{
		Endpoint: endpoint,
		Success:  result.Success,
	}
	if result.Response != nil {
		if code, ok := result.Response.Metadata["status_code"].(int); ok {
			out.StatusCode = &code
		}
		out.Response = result.Response.Raw
		if result.Response.Error != "" {
			msg := result.Response.Error
			out.Error = &msg
		}
		if result.Success && result.Response.Raw != nil {
			out.SensitiveFindings = detectSensitiveInfo(result.Response.Raw)
		}
	}
	return out
}

func scanAuthHeaders(target providers.Options) map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if target.Config.APIKey != "" {
		headers["Authorization"] = "Bearer " + target.Config.APIKey
	}
	for k, v := range target.Config.Headers {
		headers[k] = v
	}
	return headers
}

// detectSensitiveInfo flags keywords in the stringified response, deduped in
// table order.
func detectSensitiveInfo(response any) []string {
	text, err := json.Marshal(response)
	if err != nil {
		return nil
	}
	lowered := strings.ToLower(string(text))

	var findings []string
	seen := make(map[string]bool)
	for _, p := range sensitivePatterns {
		if strings.Contains(lowered, p.keyword) && !seen[p.finding] {
			seen[p.finding] = true
			findings = append(findings, p.finding)
		}
	}
	return findings
}

// NewScanTool builds the configuration-endpoint scan tool.
func NewScanTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "scan",
			Description: "Probe the target agent's configuration endpoints (from the provider catalog's scan_endpoints) and flag sensitive information in the responses. Returns a JSON report.",
			Parameters: []Parameter{
				{Name: "endpoints", Type: "string", Description: "Optional comma-separated endpoint paths overriding the catalog list", Required: false},
			},
			NeedsContext: true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			if tc.Provider == nil || tc.Adapter == nil {
				return nil, errors.New("Agent provider not set")
			}

			var endpointList []string
			if raw := stringArg(args, "endpoints"); raw != "" {
				for _, e := range strings.Split(raw, ",") {
					if trimmed := strings.TrimSpace(e); trimmed != "" {
						endpointList = append(endpointList, trimmed)
					}
				}
			}

			scanner := &endpointScanner{adapter: tc.Adapter}
			result := scanner.ScanTarget(ctx, *tc.Provider, endpointList)

			data, err := json.Marshal(result)
			if err != nil {
				return nil, err
			}
			return string(data), nil
		},
	}
}
