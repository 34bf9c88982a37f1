// Package httpclient provides the shared HTTP execution layer used by the
// provider adapter, the endpoint scan tool, and the scanner's own LLM
// client. Retries are off by default: the provider adapter performs exactly
// one network exchange per call and leaves retry policy to its callers. The
// LLM client opts in with WithMaxRetries.
package httpclient

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Client wraps http.Client with optional bounded retries for transient
// failures (429 and 5xx). Permanent request errors are never retried.
type Client struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	retryable  func(statusCode int) bool
	sleep      func(time.Duration)
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

func WithMaxRetries(max int) Option {
	return func(c *Client) {
		c.maxRetries = max
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

// WithRetryablePredicate overrides which status codes are considered
// transient.
func WithRetryablePredicate(fn func(statusCode int) bool) Option {
	return func(c *Client) {
		c.retryable = fn
	}
}

// WithSleepFunc replaces the inter-attempt sleep. Tests use this to record
// delays instead of waiting.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

func New(opts ...Option) *Client {
	client := &Client{
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 0,
		baseDelay:  2 * time.Second,
		retryable:  DefaultRetryable,
		sleep:      time.Sleep,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// DefaultRetryable reports whether a status code represents a transient
// failure. Client errors other than 408/429 are permanent.
func DefaultRetryable(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return statusCode >= 500
}

// Do executes the request, retrying transient failures up to maxRetries
// times. The request body is recreated through GetBody on each retry.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Transport-level failure (timeout, refused connection). Worth a
			// retry when the caller asked for them.
			lastResp, lastErr = nil, err
			if attempt < c.maxRetries {
				c.sleep(c.delay(attempt, nil))
				continue
			}
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		lastResp, lastErr = resp, fmt.Errorf("HTTP %d", resp.StatusCode)

		if !c.retryable(resp.StatusCode) || attempt >= c.maxRetries {
			return resp, nil
		}

		delay := c.delay(attempt, resp)
		resp.Body.Close()
		c.sleep(delay)
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, &RetryableError{
		Message: fmt.Sprintf("max retries exceeded after %d attempts", c.maxRetries),
		Err:     lastErr,
	}
}

// delay computes the wait before the next attempt: a Retry-After header when
// the server sent one, otherwise exponential backoff with 10% jitter off the
// base delay.
func (c *Client) delay(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if ra := parseRetryAfter(resp.Header); ra > 0 {
			return ra
		}
	}
	exponential := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
	jitter := time.Duration(float64(exponential) * 0.1)
	return exponential + jitter
}

// parseRetryAfter handles the delay-seconds form of the standard Retry-After
// header. HTTP-date values are ignored.
func parseRetryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
