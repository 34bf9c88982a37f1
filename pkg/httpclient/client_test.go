package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientDo(t *testing.T) {
	tests := []struct {
		name        string
		handler     func(callCount *int32) http.HandlerFunc
		options     func() []Option
		wantCalls   int32
		wantStatus  int
		wantErr     bool
		checkDelays func(t *testing.T, delays []time.Duration)
	}{
		{
			name: "success on first attempt",
			handler: func(callCount *int32) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(callCount, 1)
					w.WriteHeader(http.StatusOK)
					fmt.Fprint(w, "ok")
				}
			},
			options:    func() []Option { return []Option{WithMaxRetries(3)} },
			wantCalls:  1,
			wantStatus: http.StatusOK,
		},
		{
			name: "no retries by default",
			handler: func(callCount *int32) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(callCount, 1)
					w.WriteHeader(http.StatusInternalServerError)
				}
			},
			options:    func() []Option { return nil },
			wantCalls:  1,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "retries server errors until success",
			handler: func(callCount *int32) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					n := atomic.AddInt32(callCount, 1)
					if n < 3 {
						w.WriteHeader(http.StatusServiceUnavailable)
						return
					}
					w.WriteHeader(http.StatusOK)
				}
			},
			options: func() []Option {
				return []Option{WithMaxRetries(3), WithBaseDelay(time.Millisecond)}
			},
			wantCalls:  3,
			wantStatus: http.StatusOK,
		},
		{
			name: "permanent client error is not retried",
			handler: func(callCount *int32) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(callCount, 1)
					w.WriteHeader(http.StatusUnauthorized)
				}
			},
			options: func() []Option {
				return []Option{WithMaxRetries(3), WithBaseDelay(time.Millisecond)}
			},
			wantCalls:  1,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "rate limit honors Retry-After",
			handler: func(callCount *int32) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					n := atomic.AddInt32(callCount, 1)
					if n == 1 {
						w.Header().Set("Retry-After", "7")
						w.WriteHeader(http.StatusTooManyRequests)
						return
					}
					w.WriteHeader(http.StatusOK)
				}
			},
			options: func() []Option {
				return []Option{WithMaxRetries(1), WithBaseDelay(time.Millisecond)}
			},
			wantCalls:  2,
			wantStatus: http.StatusOK,
			checkDelays: func(t *testing.T, delays []time.Duration) {
				if len(delays) != 1 {
					t.Fatalf("expected 1 recorded delay, got %d", len(delays))
				}
				if delays[0] != 7*time.Second {
					t.Errorf("expected 7s delay from Retry-After, got %v", delays[0])
				}
			},
		},
		{
			name: "exhausted retries return last response",
			handler: func(callCount *int32) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(callCount, 1)
					w.WriteHeader(http.StatusBadGateway)
				}
			},
			options: func() []Option {
				return []Option{WithMaxRetries(2), WithBaseDelay(time.Millisecond)}
			},
			wantCalls:  3,
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var callCount int32
			server := httptest.NewServer(tt.handler(&callCount))
			defer server.Close()

			var delays []time.Duration
			opts := append(tt.options(), WithSleepFunc(func(d time.Duration) {
				delays = append(delays, d)
			}))
			client := New(opts...)

			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			if err != nil {
				t.Fatalf("failed to create request: %v", err)
			}

			resp, err := client.Do(req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if got := atomic.LoadInt32(&callCount); got != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, got)
			}
			if tt.checkDelays != nil {
				tt.checkDelays(t, delays)
			}
		})
	}
}

func TestClientDoRecreatesBodyOnRetry(t *testing.T) {
	var bodies []string
	var callCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if atomic.AddInt32(&callCount, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(
		WithMaxRetries(1),
		WithBaseDelay(time.Millisecond),
		WithSleepFunc(func(time.Duration) {}),
	)

	payload := `{"message":"probe"}`
	req, err := http.NewRequest(http.MethodPost, server.URL, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	for i, body := range bodies {
		if body != payload {
			t.Errorf("attempt %d: expected body %q, got %q", i+1, payload, body)
		}
	}
}

func TestClientDoTransportError(t *testing.T) {
	// Point at a server that is already closed so every attempt fails at the
	// transport level.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var delays []time.Duration
	client := New(
		WithMaxRetries(2),
		WithBaseDelay(time.Millisecond),
		WithSleepFunc(func(d time.Duration) { delays = append(delays, d) }),
	)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if _, err := client.Do(req); err == nil {
		t.Fatal("expected transport error, got nil")
	}
	if len(delays) != 2 {
		t.Errorf("expected 2 retry delays, got %d", len(delays))
	}
}

func TestDefaultRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusRequestTimeout, true},
		{http.StatusUnprocessableEntity, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		if got := DefaultRetryable(tt.status); got != tt.want {
			t.Errorf("DefaultRetryable(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDelayExponentialBackoff(t *testing.T) {
	client := New(WithBaseDelay(100 * time.Millisecond))

	prev := time.Duration(0)
	for attempt := 0; attempt < 4; attempt++ {
		d := client.delay(attempt, nil)
		expected := time.Duration(1<<attempt) * 100 * time.Millisecond
		// 10% jitter on top of the exponential base.
		if d < expected || d > expected+expected/5 {
			t.Errorf("attempt %d: delay %v outside expected range starting at %v", attempt, d, expected)
		}
		if d <= prev {
			t.Errorf("attempt %d: delay %v did not grow from %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"not-a-number", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}

	for _, tt := range tests {
		header := http.Header{}
		if tt.value != "" {
			header.Set("Retry-After", tt.value)
		}
		if got := parseRetryAfter(header); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestRetryableErrorFormat(t *testing.T) {
	withStatus := &RetryableError{StatusCode: 503, Message: "upstream unavailable"}
	if !strings.Contains(withStatus.Error(), "503") {
		t.Errorf("expected status code in error, got %q", withStatus.Error())
	}

	inner := fmt.Errorf("connection reset")
	wrapped := &RetryableError{Message: "max retries exceeded after 3 attempts", Err: inner}
	if wrapped.Unwrap() != inner {
		t.Error("Unwrap did not return the inner error")
	}
	if strings.Contains(wrapped.Error(), "HTTP") {
		t.Errorf("expected no status prefix without a code, got %q", wrapped.Error())
	}
}
