package config_loader

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openshift-pipelines/tekton-results-reader/internal/results_api"
)

// -----------------------------------------------------------------------------
// HTTPConfig Accessors
// -----------------------------------------------------------------------------

// ParseTimeout parses the timeout string to time.Duration.
// Returns 0 if timeout is empty (caller should use default).
func (c *HTTPConfig) ParseTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Timeout)
}

// BearerToken reads BearerTokenFile. Returns "" when no file is configured.
func (c *HTTPConfig) BearerToken() (string, error) {
	if c.BearerTokenFile == "" {
		return "", nil
	}
	raw, err := os.ReadFile(c.BearerTokenFile)
	if err != nil {
		return "", fmt.Errorf("failed to read bearer token file %q: %w", c.BearerTokenFile, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// ClientOptions turns the HTTP settings into results_api client options.
func (c *HTTPConfig) ClientOptions() ([]results_api.ClientOption, error) {
	var opts []results_api.ClientOption

	timeout, err := c.ParseTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if timeout > 0 {
		opts = append(opts, results_api.WithTimeout(timeout))
	}

	if c.RetryAttempts > 0 {
		opts = append(opts, results_api.WithRetryAttempts(c.RetryAttempts))
	}

	if c.RetryBackoff != "" {
		backoff := results_api.BackoffStrategy(c.RetryBackoff)
		switch backoff {
		case results_api.BackoffExponential, results_api.BackoffLinear, results_api.BackoffConstant:
			opts = append(opts, results_api.WithRetryBackoff(backoff))
		default:
			return nil, fmt.Errorf("invalid retry backoff strategy %q (supported: exponential, linear, constant)", c.RetryBackoff)
		}
	}

	if c.InsecureSkipVerify {
		opts = append(opts, results_api.WithInsecureSkipVerify(true))
	}

	token, err := c.BearerToken()
	if err != nil {
		return nil, err
	}
	if token != "" {
		opts = append(opts, results_api.WithBearerToken(token))
	}

	return opts, nil
}

// -----------------------------------------------------------------------------
// ReaderConfig Accessors
// -----------------------------------------------------------------------------

// IsProxy reports whether records go through the console proxy
func (c *ReaderConfig) IsProxy() bool {
	return c != nil && c.Spec.Transport == TransportProxy
}

// ComponentName returns metadata.name, or the binary name when unset
func (c *ReaderConfig) ComponentName() string {
	if c == nil || c.Metadata.Name == "" {
		return "tekton-results-reader"
	}
	return c.Metadata.Name
}

// PageSizeOrNil returns the configured default page size, or nil when the
// per-operation default applies.
func (c *DefaultsConfig) PageSizeOrNil() *int {
	if c.PageSize == 0 {
		return nil
	}
	size := c.PageSize
	return &size
}
