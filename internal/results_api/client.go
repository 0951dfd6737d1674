package results_api

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/version"
)

// -----------------------------------------------------------------------------
// HTTP Client Implementation
// -----------------------------------------------------------------------------

type httpClient struct {
	client *http.Client
	config *ClientConfig
	log    logger.Logger
}

// ClientOption is a functional option for configuring the client
type ClientOption func(*httpClient)

// WithHTTPClient sets a custom http.Client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *httpClient) {
		c.client = client
	}
}

// WithConfig sets the client configuration
func WithConfig(config *ClientConfig) ClientOption {
	return func(c *httpClient) {
		if config != nil {
			c.config = config
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(log logger.Logger) ClientOption {
	return func(c *httpClient) {
		if log != nil {
			c.log = log
		}
	}
}

// WithBaseURL sets the prefix for relative request URLs
func WithBaseURL(baseURL string) ClientOption {
	return func(c *httpClient) {
		c.config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithDefaultHeader adds a default header to all requests
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *httpClient) {
		if c.config.DefaultHeaders == nil {
			c.config.DefaultHeaders = make(map[string]string)
		}
		c.config.DefaultHeaders[key] = value
	}
}

// WithBearerToken authenticates every request with the given token.
// An empty token is ignored.
func WithBearerToken(token string) ClientOption {
	return func(c *httpClient) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		WithDefaultHeader("Authorization", "Bearer "+token)(c)
	}
}

// WithInsecureSkipVerify disables server certificate verification
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(c *httpClient) {
		c.config.InsecureSkipVerify = skip
	}
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *httpClient) {
		c.config.Timeout = timeout
	}
}

// WithRetryAttempts sets the number of attempts
func WithRetryAttempts(attempts int) ClientOption {
	return func(c *httpClient) {
		c.config.RetryAttempts = attempts
	}
}

// WithRetryBackoff sets the retry backoff strategy
func WithRetryBackoff(backoff BackoffStrategy) ClientOption {
	return func(c *httpClient) {
		c.config.RetryBackoff = backoff
	}
}

// WithBaseDelay sets the base delay for retry backoff
func WithBaseDelay(delay time.Duration) ClientOption {
	return func(c *httpClient) {
		c.config.BaseDelay = delay
	}
}

// WithMaxDelay sets the maximum delay for retry backoff
func WithMaxDelay(delay time.Duration) ClientOption {
	return func(c *httpClient) {
		c.config.MaxDelay = delay
	}
}

// NewClient creates a results API client
func NewClient(opts ...ClientOption) Client {
	c := &httpClient{
		config: DefaultClientConfig(),
		log:    logger.NewDiscardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if _, ok := c.config.DefaultHeaders["User-Agent"]; !ok {
		WithDefaultHeader("User-Agent", version.UserAgent())(c)
	}

	if c.client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if c.config.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for in-cluster service certs
		}
		c.client = &http.Client{Transport: transport}
	}

	return c
}

// BaseURL returns the configured base URL
func (c *httpClient) BaseURL() string {
	return c.config.BaseURL
}

func (c *httpClient) resolveURL(url string) string {
	if c.config.BaseURL == "" || strings.Contains(url, "://") {
		return url
	}
	return c.config.BaseURL + "/" + strings.TrimPrefix(url, "/")
}

// -----------------------------------------------------------------------------
// Client Interface Implementation
// -----------------------------------------------------------------------------

// Do executes an HTTP request with retry logic
func (c *httpClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	url := c.resolveURL(req.URL)

	retryAttempts := c.config.RetryAttempts
	if req.RetryAttempts != nil {
		retryAttempts = *req.RetryAttempts
	}
	if retryAttempts < 1 {
		retryAttempts = 1
	}

	var lastErr error
	var lastResp *Response
	startTime := time.Now()

	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewAPIError(req.Method, url, 0, "", nil, attempt, time.Since(startTime), fmt.Errorf("context cancelled: %w", err))
		}

		resp, err := c.doRequest(ctx, req, url)
		if err != nil {
			lastErr = err
			c.log.Warnf(ctx, "Results request failed (attempt %d/%d): %v", attempt, retryAttempts, err)
		} else {
			resp.Attempts = attempt
			resp.Duration = time.Since(startTime)

			if resp.IsSuccess() || !resp.IsRetryable() {
				return resp, nil
			}

			lastResp = resp
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			c.log.Warnf(ctx, "Results request returned retryable status %d (attempt %d/%d)",
				resp.StatusCode, attempt, retryAttempts)
		}

		if attempt < retryAttempts {
			delay := c.calculateBackoff(attempt, c.config.RetryBackoff)
			c.log.Debugf(ctx, "Retrying in %v...", delay)

			select {
			case <-ctx.Done():
				return nil, apperrors.NewAPIError(req.Method, url, 0, "", nil, attempt, time.Since(startTime), fmt.Errorf("context cancelled during retry: %w", ctx.Err()))
			case <-time.After(delay):
			}
		}
	}

	duration := time.Since(startTime)
	if lastResp != nil {
		lastResp.Duration = duration
		return lastResp, apperrors.NewAPIError(
			req.Method,
			url,
			lastResp.StatusCode,
			lastResp.Status,
			lastResp.Body,
			retryAttempts,
			duration,
			lastErr,
		)
	}

	return nil, apperrors.NewAPIError(req.Method, url, 0, "", nil, retryAttempts, duration, lastErr)
}

// doRequest performs a single HTTP request without retry logic
func (c *httpClient) doRequest(ctx context.Context, req *Request, url string) (*Response, error) {
	timeout := c.config.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for k, v := range c.config.DefaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	otel.GetTextMapPropagator().Inject(reqCtx, propagation.HeaderCarrier(httpReq.Header))

	c.log.Debugf(ctx, "Results request: %s %s", req.Method, url)
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.log.Debugf(ctx, "Results response: %d %s (%d bytes)", httpResp.StatusCode, httpResp.Status, len(respBody))

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

// calculateBackoff calculates the delay before the next retry attempt
func (c *httpClient) calculateBackoff(attempt int, strategy BackoffStrategy) time.Duration {
	baseDelay := c.config.BaseDelay
	maxDelay := c.config.MaxDelay

	var delay time.Duration
	switch strategy {
	case BackoffExponential:
		delay = time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
	case BackoffLinear:
		delay = baseDelay * time.Duration(attempt)
	default:
		delay = baseDelay
	}

	// ±10% jitter
	jitter := time.Duration(rand.Float64()*0.2*float64(delay) - 0.1*float64(delay))
	delay += jitter

	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// -----------------------------------------------------------------------------
// Convenience Methods
// -----------------------------------------------------------------------------

// Get performs a GET request
func (c *httpClient) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	req := &Request{
		Method: http.MethodGet,
		URL:    url,
	}
	for _, opt := range opts {
		opt(req)
	}
	return c.Do(ctx, req)
}

// Post performs a POST request
func (c *httpClient) Post(ctx context.Context, url string, body []byte, opts ...RequestOption) (*Response, error) {
	req := &Request{
		Method: http.MethodPost,
		URL:    url,
		Body:   body,
	}
	for _, opt := range opts {
		opt(req)
	}
	return c.Do(ctx, req)
}
