package results_api

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// Retry Backoff Strategies
// -----------------------------------------------------------------------------

// BackoffStrategy defines the retry backoff strategy
type BackoffStrategy string

const (
	// BackoffExponential doubles the delay after each retry (1s, 2s, 4s, 8s...)
	BackoffExponential BackoffStrategy = "exponential"
	// BackoffLinear increases the delay linearly (1s, 2s, 3s, 4s...)
	BackoffLinear BackoffStrategy = "linear"
	// BackoffConstant uses the same delay between retries
	BackoffConstant BackoffStrategy = "constant"
)

// Default configuration values. A single attempt is the default: the
// console never retried results queries and the cache relies on a failed
// fetch surfacing promptly.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 1
	DefaultRetryBackoff  = BackoffExponential
	DefaultBaseDelay     = 500 * time.Millisecond
	DefaultMaxDelay      = 10 * time.Second
)

// -----------------------------------------------------------------------------
// Client Configuration
// -----------------------------------------------------------------------------

// ClientConfig holds the configuration for the HTTP client
type ClientConfig struct {
	// BaseURL is prefixed to relative request URLs
	BaseURL string
	// Timeout is the per-attempt timeout
	Timeout time.Duration
	// RetryAttempts is the total number of attempts for retryable failures
	RetryAttempts int
	// RetryBackoff is the backoff strategy for retries
	RetryBackoff BackoffStrategy
	// BaseDelay is the initial delay for retry backoff
	BaseDelay time.Duration
	// MaxDelay is the maximum delay for retry backoff
	MaxDelay time.Duration
	// InsecureSkipVerify disables TLS verification (in-cluster service certs)
	InsecureSkipVerify bool
	// DefaultHeaders are headers added to all requests
	DefaultHeaders map[string]string
}

// DefaultClientConfig returns a ClientConfig with default values
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:        DefaultTimeout,
		RetryAttempts:  DefaultRetryAttempts,
		RetryBackoff:   DefaultRetryBackoff,
		BaseDelay:      DefaultBaseDelay,
		MaxDelay:       DefaultMaxDelay,
		DefaultHeaders: make(map[string]string),
	}
}

// -----------------------------------------------------------------------------
// Request Types
// -----------------------------------------------------------------------------

// Request is a single call to the results API or the console proxy
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// Timeout overrides the client timeout for this request
	Timeout time.Duration
	// RetryAttempts overrides the client retry attempts for this request
	RetryAttempts *int
}

// RequestOption is a functional option for configuring a request
type RequestOption func(*Request)

// WithHeader adds a single header to the request
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithJSONBody sets the request body and Content-Type header for JSON
func WithJSONBody(body []byte) RequestOption {
	return func(r *Request) {
		r.Body = body
		WithHeader("Content-Type", "application/json")(r)
	}
}

// WithRequestTimeout sets a custom timeout for this specific request
func WithRequestTimeout(timeout time.Duration) RequestOption {
	return func(r *Request) {
		r.Timeout = timeout
	}
}

// WithRequestRetryAttempts sets custom retry attempts for this specific request
func WithRequestRetryAttempts(attempts int) RequestOption {
	return func(r *Request) {
		r.RetryAttempts = &attempts
	}
}

// -----------------------------------------------------------------------------
// Response Types
// -----------------------------------------------------------------------------

// Response is the raw HTTP outcome. Non-2xx responses are returned as
// responses, not errors, so callers can decide how to treat 404.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string][]string
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// IsSuccess returns true if the response status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsNotFound returns true for 404
func (r *Response) IsNotFound() bool {
	return r.StatusCode == 404
}

// IsServerError returns true if the response status code is 5xx
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// IsRetryable reports whether the status is worth another attempt:
// any 5xx, 408 or 429.
func (r *Response) IsRetryable() bool {
	switch r.StatusCode {
	case 408, 429:
		return true
	default:
		return r.IsServerError()
	}
}

// BodyString returns the response body as a string
func (r *Response) BodyString() string {
	if r.Body == nil {
		return ""
	}
	return string(r.Body)
}

// -----------------------------------------------------------------------------
// Client Interface
// -----------------------------------------------------------------------------

// Client is the HTTP client used by the direct and proxy transports
type Client interface {
	// Do executes an HTTP request and returns the response
	Do(ctx context.Context, req *Request) (*Response, error)
	// Get performs a GET request
	Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error)
	// Post performs a POST request
	Post(ctx context.Context, url string, body []byte, opts ...RequestOption) (*Response, error)
	// BaseURL returns the configured base URL
	BaseURL() string
}
