package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a failed Results call, direct or through the console proxy.
// StatusCode is zero when no response arrived.
type APIError struct {
	Method       string
	URL          string
	StatusCode   int
	Status       string
	ResponseBody []byte
	Attempts     int
	Duration     time.Duration
	Err          error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("results request failed: %s %s returned %d %s after %d attempt(s): %v",
			e.Method, e.URL, e.StatusCode, e.Status, e.Attempts, e.Err)
	}
	return fmt.Sprintf("results request failed: %s %s after %d attempt(s): %v",
		e.Method, e.URL, e.Attempts, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) IsTimeout() bool {
	return e.StatusCode == http.StatusRequestTimeout || errors.Is(e.Err, context.DeadlineExceeded)
}

func (e *APIError) IsServerError() bool  { return e.StatusCode >= 500 && e.StatusCode < 600 }
func (e *APIError) IsClientError() bool  { return e.StatusCode >= 400 && e.StatusCode < 500 }
func (e *APIError) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsForbidden() bool    { return e.StatusCode == http.StatusForbidden }

// ResponseBodyString is the raw body, which the proxy relays unchanged.
func (e *APIError) ResponseBodyString() string {
	return string(e.ResponseBody)
}

func NewAPIError(method, url string, statusCode int, status string, body []byte, attempts int, duration time.Duration, err error) *APIError {
	return &APIError{
		Method:       method,
		URL:          url,
		StatusCode:   statusCode,
		Status:       status,
		ResponseBody: body,
		Attempts:     attempts,
		Duration:     duration,
		Err:          err,
	}
}

// IsAPIError unwraps err to an *APIError.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
