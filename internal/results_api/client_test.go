package results_api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/version"
)

func TestNewClient(t *testing.T) {
	client := NewClient()
	if client == nil {
		t.Fatal("NewClient returned nil")
	}
	if client.BaseURL() != "" {
		t.Errorf("expected empty base URL, got %q", client.BaseURL())
	}
}

func TestNewClientWithOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []ClientOption
	}{
		{name: "with timeout", opts: []ClientOption{WithTimeout(5 * time.Second)}},
		{name: "with retry attempts", opts: []ClientOption{WithRetryAttempts(5)}},
		{name: "with linear backoff", opts: []ClientOption{WithRetryBackoff(BackoffLinear)}},
		{name: "with insecure TLS", opts: []ClientOption{WithInsecureSkipVerify(true)}},
		{
			name: "with all options",
			opts: []ClientOption{
				WithBaseURL("https://results.example.com/"),
				WithTimeout(10 * time.Second),
				WithRetryAttempts(3),
				WithRetryBackoff(BackoffExponential),
				WithBaseDelay(500 * time.Millisecond),
				WithMaxDelay(30 * time.Second),
				WithDefaultHeader("X-Custom", "value"),
				WithBearerToken("token"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if client := NewClient(tt.opts...); client == nil {
				t.Error("client is nil")
			}
		})
	}
}

func TestClientGet(t *testing.T) {
	var userAgent, accept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		userAgent = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	resp, err := NewClient().Get(context.Background(), server.URL+"/records")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}
	if resp.BodyString() != `{"records":[]}` {
		t.Errorf("unexpected body %q", resp.BodyString())
	}
	if userAgent != version.UserAgent() {
		t.Errorf("expected User-Agent %q, got %q", version.UserAgent(), userAgent)
	}
	if accept != "application/json" {
		t.Errorf("expected Accept application/json, got %q", accept)
	}
}

func TestClientBaseURL(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL + "/"))
	if client.BaseURL() != server.URL {
		t.Errorf("expected base URL %q, got %q", server.URL, client.BaseURL())
	}

	if _, err := client.Get(context.Background(), "/api/dev-console/tekton-results/get"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/api/dev-console/tekton-results/get" {
		t.Errorf("unexpected path %q", path)
	}
}

func TestClientPostJSON(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	body := []byte(`{"taskRunPath":"ns/results/r/records/x"}`)
	if _, err := NewClient().Post(context.Background(), server.URL, body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", receivedContentType)
	}
	if string(receivedBody) != string(body) {
		t.Errorf("expected body %s, got %s", body, receivedBody)
	}
}

func TestClientBearerToken(t *testing.T) {
	var receivedAuth, receivedCustom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		receivedCustom = r.Header.Get("X-Custom-Header")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithBearerToken("  sa-token\n"))
	if _, err := client.Get(context.Background(), server.URL, WithHeader("X-Custom-Header", "custom-value")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedAuth != "Bearer sa-token" {
		t.Errorf("expected Authorization 'Bearer sa-token', got %q", receivedAuth)
	}
	if receivedCustom != "custom-value" {
		t.Errorf("expected X-Custom-Header 'custom-value', got %q", receivedCustom)
	}

	receivedAuth = ""
	if _, err := NewClient(WithBearerToken("")).Get(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedAuth != "" {
		t.Errorf("expected no Authorization header, got %q", receivedAuth)
	}
}

func TestClientPropagatesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "fetch")
	defer span.End()

	if _, err := NewClient().Get(ctx, server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(traceparent, span.SpanContext().TraceID().String()) {
		t.Errorf("expected traceparent to carry trace id %s, got %q", span.SpanContext().TraceID(), traceparent)
	}
}

func TestClientDefaultDoesNotRetry(t *testing.T) {
	var attemptCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attemptCount, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resp, err := NewClient().Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 response alongside the error, got %+v", resp)
	}
	if got := atomic.LoadInt32(&attemptCount); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestClientRetry(t *testing.T) {
	var attemptCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attemptCount, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := DefaultClientConfig()
	config.RetryAttempts = 3
	config.BaseDelay = 10 * time.Millisecond

	resp, err := NewClient(WithConfig(config)).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", resp.Attempts)
	}
}

func TestClientRetryExhaustedReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(WithRetryAttempts(2), WithBaseDelay(5*time.Millisecond))
	_, err := client.Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	apiErr, ok := errors.IsAPIError(err)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", apiErr.StatusCode)
	}
	if apiErr.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", apiErr.Attempts)
	}
	if apiErr.ResponseBodyString() != "upstream down" {
		t.Errorf("unexpected response body %q", apiErr.ResponseBodyString())
	}
	if !apiErr.IsServerError() {
		t.Error("expected IsServerError to return true")
	}
}

func TestClientNotFoundIsAResponse(t *testing.T) {
	var attemptCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attemptCount, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resp, err := NewClient(WithRetryAttempts(3)).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsNotFound() {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&attemptCount); got != 1 {
		t.Errorf("expected 1 attempt (no retry on 4xx), got %d", got)
	}
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := NewClient(WithTimeout(50*time.Millisecond)).Get(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestClientContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient().Get(ctx, "http://127.0.0.1:1/never")
	if err == nil {
		t.Fatal("expected context cancellation error, got nil")
	}
	if !strings.Contains(err.Error(), "context cancelled") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResponseHelpers(t *testing.T) {
	tests := []struct {
		statusCode  int
		isSuccess   bool
		isNotFound  bool
		isRetryable bool
	}{
		{200, true, false, false},
		{204, true, false, false},
		{400, false, false, false},
		{404, false, true, false},
		{408, false, false, true},
		{429, false, false, true},
		{500, false, false, true},
		{503, false, false, true},
	}

	for _, tt := range tests {
		resp := &Response{StatusCode: tt.statusCode}
		if resp.IsSuccess() != tt.isSuccess {
			t.Errorf("status %d: IsSuccess() = %v, want %v", tt.statusCode, resp.IsSuccess(), tt.isSuccess)
		}
		if resp.IsNotFound() != tt.isNotFound {
			t.Errorf("status %d: IsNotFound() = %v, want %v", tt.statusCode, resp.IsNotFound(), tt.isNotFound)
		}
		if resp.IsRetryable() != tt.isRetryable {
			t.Errorf("status %d: IsRetryable() = %v, want %v", tt.statusCode, resp.IsRetryable(), tt.isRetryable)
		}
	}
}

func TestBackoffCalculation(t *testing.T) {
	c := &httpClient{config: &ClientConfig{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  1 * time.Second,
	}}

	within := func(got, want time.Duration) bool {
		return got >= want*9/10 && got <= want*11/10
	}

	if d := c.calculateBackoff(3, BackoffExponential); !within(d, 400*time.Millisecond) {
		t.Errorf("exponential attempt 3: got %v", d)
	}
	if d := c.calculateBackoff(3, BackoffLinear); !within(d, 300*time.Millisecond) {
		t.Errorf("linear attempt 3: got %v", d)
	}
	if d := c.calculateBackoff(3, BackoffConstant); !within(d, 100*time.Millisecond) {
		t.Errorf("constant attempt 3: got %v", d)
	}
	if d := c.calculateBackoff(10, BackoffExponential); d != time.Second {
		t.Errorf("expected delay capped at 1s, got %v", d)
	}
}
