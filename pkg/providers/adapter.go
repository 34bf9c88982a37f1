// Package providers adapts heterogeneous remote agent protocols — OpenAI
// style chat completions, Anthropic messages, Google generateContent, Dify
// chat and workflow apps, Coze v3 bots, and arbitrary HTTP endpoints —
// behind a single call contract. A call performs exactly one network
// exchange and never returns a Go error: transport failures, HTTP errors,
// and configuration problems all come back as a Result with Success=false,
// leaving retry policy to the caller.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agentscan/agentscan/pkg/httpclient"
	"github.com/agentscan/agentscan/pkg/observability"
)

const (
	// DefaultTimeout bounds one provider exchange unless the target
	// overrides it with timeout_ms.
	DefaultTimeout = 30 * time.Second

	// DefaultTestPrompt is sent when the caller provides no prompt, e.g.
	// connectivity checks.
	DefaultTestPrompt = "Hi!"
)

// route is the protocol family a target resolves to. Resolution happens
// once per call from the ID prefix and the catalog; everything after is a
// plain switch.
type route int

const (
	routeLocal route = iota
	routeHTTP
	routeDify
	routeCoze
	routeStandard
)

func (r route) String() string {
	switch r {
	case routeHTTP:
		return "http"
	case routeDify:
		return "dify"
	case routeCoze:
		return "coze"
	case routeStandard:
		return "standard"
	default:
		return "local"
	}
}

// Client talks to remote agent targets. It is safe for concurrent use; the
// catalog is immutable and the underlying HTTP client performs no retries.
type Client struct {
	catalog *Catalog
	http    *httpclient.Client
	timeout time.Duration
	sleep   func(time.Duration)
	tracer  trace.Tracer
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTimeout changes the default per-call timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithHTTPClient substitutes the HTTP execution layer.
func WithHTTPClient(client *httpclient.Client) ClientOption {
	return func(c *Client) {
		c.http = client
	}
}

// WithSleepFunc replaces the inter-call delay sleep. Tests use this to
// record pacing instead of waiting.
func WithSleepFunc(fn func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.sleep = fn
	}
}

// NewClient builds a provider client over the given catalog.
func NewClient(catalog *Catalog, opts ...ClientOption) *Client {
	// Timeouts are enforced per request via context so targets can
	// override the default; the http.Client itself carries none.
	client := &Client{
		catalog: catalog,
		http:    httpclient.New(httpclient.WithHTTPClient(&http.Client{})),
		timeout: DefaultTimeout,
		sleep:   time.Sleep,
		tracer:  observability.GetTracer("agentscan.providers"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Catalog exposes the client's provider catalog, e.g. for endpoint scans.
func (c *Client) Catalog() *Catalog {
	return c.catalog
}

// Call sends one prompt to the target and reports the outcome. An empty
// prompt falls back to DefaultTestPrompt. When the target configures a
// delay, Call sleeps after a successful exchange to pace consecutive
// probes.
func (c *Client) Call(ctx context.Context, target Options, prompt string) Result {
	if prompt == "" {
		prompt = DefaultTestPrompt
	}

	r, tc := c.resolve(target)
	ctx, span := c.tracer.Start(ctx, observability.SpanProviderCall,
		trace.WithAttributes(
			attribute.String(observability.AttrProviderID, target.ID),
			attribute.String(observability.AttrProviderType, r.String()),
		))
	defer span.End()

	var result Result
	switch r {
	case routeHTTP:
		result = c.callHTTP(ctx, target, prompt)
	case routeDify:
		result = c.callDify(ctx, target, prompt)
	case routeCoze:
		result = c.callCoze(ctx, target, prompt)
	case routeStandard:
		result = c.callStandard(ctx, target, tc, prompt)
	default:
		result = ValidateTarget(target)
	}

	if result.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, result.Message)
	}

	if result.Success && !result.Cached && target.Delay > 0 {
		c.sleep(time.Duration(target.Delay) * time.Millisecond)
	}
	return result
}

// resolve maps a target to its protocol family. IDs starting with "http"
// hit the custom HTTP path (as does an empty ID with a configured URL);
// "dify*" and "coze*" select their dedicated APIs; any catalog type runs
// the standard path; everything else is validated locally without network
// traffic.
func (c *Client) resolve(target Options) (route, TypeConfig) {
	id := strings.ToLower(strings.TrimSpace(target.ID))
	switch {
	case strings.HasPrefix(id, "http"), id == "" && target.Config.URL != "":
		return routeHTTP, TypeConfig{}
	case strings.HasPrefix(id, "dify"):
		return routeDify, TypeConfig{}
	case strings.HasPrefix(id, "coze"):
		return routeCoze, TypeConfig{}
	}
	if tc, ok := c.catalog.Type(typeOf(id)); ok {
		return routeStandard, tc
	}
	return routeLocal, TypeConfig{}
}

// typeOf returns the catalog type encoded in an ID: the part before the
// first colon.
func typeOf(id string) string {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[:i]
	}
	return id
}

// modelOf returns the model encoded in an ID: the part after the first
// colon, with reserved mode prefixes stripped.
func modelOf(id string) string {
	i := strings.Index(id, ":")
	if i < 0 {
		return ""
	}
	model := id[i+1:]
	for _, prefix := range []string{"messages:", "chat:", "completion:"} {
		if strings.HasPrefix(model, prefix) {
			model = model[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(model)
}

// timeoutFor picks the effective deadline for one exchange.
func (c *Client) timeoutFor(target Options) time.Duration {
	if target.Config.TimeoutMS > 0 {
		return time.Duration(target.Config.TimeoutMS) * time.Millisecond
	}
	return c.timeout
}

// execute performs the single HTTP exchange shared by every network route:
// send, decode (JSON or SSE), extract output, and classify the outcome.
func (c *Client) execute(ctx context.Context, method, url string, headers map[string]string, body []byte, timeout time.Duration, transform string) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return failure(fmt.Sprintf("Error: %v", err))
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(err, url, timeout)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(err, url, timeout)
	}
	elapsed := time.Since(start)

	isSSE := strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream")
	var raw any
	var tokenUsage map[string]any
	if isSSE {
		raw, tokenUsage = parseSSE(string(payload))
	} else {
		var decoded any
		if err := json.Unmarshal(payload, &decoded); err == nil {
			raw = decoded
		} else {
			raw = string(payload)
		}
		if m := asMap(raw); m != nil {
			if u := asMap(m["usage"]); u != nil {
				tokenUsage = u
			}
		}
	}

	response := &Response{
		Raw:        raw,
		Output:     extractOutput(raw, transform),
		Headers:    flattenHeaders(resp.Header),
		TokenUsage: tokenUsage,
		Metadata: map[string]any{
			"status_code":  resp.StatusCode,
			"elapsed_time": fmt.Sprintf("%.2fs", elapsed.Seconds()),
			"url":          url,
			"method":       method,
			"is_sse":       isSSE,
		},
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{
			Success:  true,
			Message:  fmt.Sprintf("Connection successful! Status: %d, Time: %.2fs", resp.StatusCode, elapsed.Seconds()),
			Response: response,
		}
	}

	errorMsg := extractErrorMessage(raw)
	if errorMsg == "" {
		errorMsg = "Unknown error"
	}
	response.Error = errorMsg
	return Result{
		Success:  false,
		Message:  fmt.Sprintf("Request failed with status %d: %s", resp.StatusCode, errorMsg),
		Response: response,
	}
}

// classifyTransportError maps request-level failures onto the operator
// messages callers pattern-match on: timeouts and refused connections get
// distinct wording, everything else is generic.
func classifyTransportError(err error, url string, timeout time.Duration) Result {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Result{
			Success:  false,
			Message:  fmt.Sprintf("Request timed out after %d seconds", int(timeout.Seconds())),
			Response: &Response{Error: "Timeout"},
		}
	}

	var dnsErr *net.DNSError
	if errors.Is(err, syscall.ECONNREFUSED) || errors.As(err, &dnsErr) {
		return failure(fmt.Sprintf("Connection refused: Cannot connect to %s", url))
	}

	return failure(fmt.Sprintf("Error: %v", err))
}

// extractErrorMessage digs the human-readable error out of an API failure
// body: error.message, then error itself, then a top-level message.
func extractErrorMessage(raw any) string {
	body := asMap(raw)
	if body == nil {
		return ""
	}
	if errField, present := body["error"]; present && errField != nil {
		if m := asMap(errField); m != nil {
			if msg, ok := m["message"].(string); ok && msg != "" {
				return msg
			}
		}
		if s := stringify(errField); s != "" && s != "{}" {
			return s
		}
	}
	if msg, ok := body["message"].(string); ok {
		return msg
	}
	return ""
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) > 0 {
			flat[key] = values[0]
		}
	}
	return flat
}

// ValidateTarget checks a target's configuration without touching the
// network. Call falls back to it for targets that match no known protocol;
// `agentscan providers validate` runs it over a whole target file.
func ValidateTarget(target Options) Result {
	var errs []string
	if target.ID == "" {
		errs = append(errs, "Provider ID is required")
	}

	id := strings.ToLower(target.ID)
	switch {
	case strings.HasPrefix(id, "http"):
		if target.Config.URL == "" {
			errs = append(errs, "HTTP URL is required")
		} else if !strings.HasPrefix(target.Config.URL, "http://") && !strings.HasPrefix(target.Config.URL, "https://") {
			errs = append(errs, "HTTP URL must start with http:// or https://")
		}
	case strings.HasPrefix(id, "websocket"):
		if target.Config.URL == "" {
			errs = append(errs, "WebSocket URL is required")
		} else if !strings.HasPrefix(target.Config.URL, "ws://") && !strings.HasPrefix(target.Config.URL, "wss://") {
			errs = append(errs, "WebSocket URL must start with ws:// or wss://")
		}
	}

	if len(errs) > 0 {
		return Result{
			Success: false,
			Message: "Configuration validation failed:\n- " + strings.Join(errs, "\n- "),
		}
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Configuration valid for: %s", target.ID),
		Response: &Response{
			Output:   fmt.Sprintf("Local validation passed for: %s", target.ID),
			Metadata: map[string]any{"provider_id": target.ID, "validation": "local"},
		},
	}
}
