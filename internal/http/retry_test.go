package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/catrobat/catroid-share/internal/logging"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeSuccess},
		{"canceled", context.Canceled, ErrorTypeFatal},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), ErrorTypeFatal},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), ErrorTypeNetwork},
		{"reset", errors.New("read: connection reset by peer"), ErrorTypeNetwork},
		{"tls", errors.New("net/http: TLS handshake timeout"), ErrorTypeNetwork},
		{"unexpected eof", errors.New("unexpected EOF"), ErrorTypeNetwork},
		{"503", errors.New("server returned 503"), ErrorTypeRetryable},
		{"bad request", errors.New("400 bad request"), ErrorTypeFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, ErrorTypeName(got), ErrorTypeName(tt.want))
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{200, ErrorTypeSuccess},
		{201, ErrorTypeSuccess},
		{400, ErrorTypeFatal},
		{401, ErrorTypeFatal},
		{429, ErrorTypeRetryable},
		{500, ErrorTypeFatal},
		{502, ErrorTypeRetryable},
		{503, ErrorTypeRetryable},
		{504, ErrorTypeRetryable},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.code); got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", tt.code, ErrorTypeName(got), ErrorTypeName(tt.want))
		}
	}
}

// TestCalculateBackoff verifies backoff stays within the capped exponential bound.
func TestCalculateBackoff(t *testing.T) {
	initial := 10 * time.Millisecond
	maxDelay := 100 * time.Millisecond

	if d := CalculateBackoff(0, initial, maxDelay); d != 0 {
		t.Errorf("attempt 0: expected 0, got %v", d)
	}

	for attempt := 1; attempt <= 10; attempt++ {
		for i := 0; i < 20; i++ {
			d := CalculateBackoff(attempt, initial, maxDelay)
			if d < 0 || d >= maxDelay {
				t.Fatalf("attempt %d: backoff %v out of range [0, %v)", attempt, d, maxDelay)
			}
		}
	}
}

func TestNewRetryClient_ZeroRetriesReturnsBase(t *testing.T) {
	base := &http.Client{}
	if got := NewRetryClient(base, 0, nil); got != base {
		t.Error("expected base client to be returned unchanged")
	}
}

func TestNewRetryClient_RetriesGatewayErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRetryClient(srv.Client(), 3, logging.NewNopLogger())
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestNewRetryClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewRetryClient(srv.Client(), 3, nil)
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestNewRetryClient_ExhaustedPassesResponseThrough(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewRetryClient(srv.Client(), 2, nil)
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected passthrough response, got error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestErrorTypeName(t *testing.T) {
	if ErrorTypeName(ErrorType(42)) != "unknown" {
		t.Error("expected unknown for out-of-range type")
	}
	if ErrorTypeName(ErrorTypeNetwork) != "network" {
		t.Error("expected network")
	}
}
