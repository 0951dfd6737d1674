package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// Prefix used for error code strings
	// Example:
	//   ErrorCodePrefix = "results-reader"
	//   results in: results-reader-1
	ErrorCodePrefix = "results-reader"

	// NotFound occurs when a record, log or cluster object does not exist
	ErrorNotFound ServiceErrorCode = 1

	// Validation occurs when an object fails validation
	ErrorValidation ServiceErrorCode = 2

	// BadRequest occurs when the request is malformed or invalid
	ErrorBadRequest ServiceErrorCode = 3

	// General occurs when an error fails to match any other error code
	ErrorGeneral ServiceErrorCode = 4

	// UnsupportedOperator occurs when a selector expression uses an operator
	// that has no filter translation
	ErrorUnsupportedOperator ServiceErrorCode = 5

	// MalformedResponse occurs when a proxy or results response cannot be decoded
	ErrorMalformedResponse ServiceErrorCode = 6

	// KubernetesError occurs when there's an error interacting with Kubernetes API
	ErrorKubernetesError ServiceErrorCode = 7

	// ResultsAPIError occurs when there's an error calling the Tekton Results API
	ErrorResultsAPIError ServiceErrorCode = 8

	// EndpointDiscovery occurs when the results API host cannot be resolved
	ErrorEndpointDiscovery ServiceErrorCode = 9

	// ConfigNotFound occurs when the reader configuration file is missing
	ErrorConfigNotFound ServiceErrorCode = 10
)

type ServiceErrorCode int

type ServiceErrors []ServiceError

func Find(code ServiceErrorCode) (bool, *ServiceError) {
	for _, err := range Errors() {
		if err.Code == code {
			return true, &err
		}
	}
	return false, nil
}

func Errors() ServiceErrors {
	return ServiceErrors{
		{Code: ErrorNotFound, Reason: "Resource not found", HttpCode: http.StatusNotFound},
		{Code: ErrorValidation, Reason: "General validation failure", HttpCode: http.StatusBadRequest},
		{Code: ErrorBadRequest, Reason: "Bad request", HttpCode: http.StatusBadRequest},
		{Code: ErrorGeneral, Reason: "Unspecified error", HttpCode: http.StatusInternalServerError},
		{Code: ErrorUnsupportedOperator, Reason: "Unsupported selector operator", HttpCode: http.StatusBadRequest},
		{Code: ErrorMalformedResponse, Reason: "Malformed response", HttpCode: http.StatusBadGateway},
		{Code: ErrorKubernetesError, Reason: "Kubernetes API error", HttpCode: http.StatusInternalServerError},
		{Code: ErrorResultsAPIError, Reason: "Tekton Results API error", HttpCode: http.StatusBadGateway},
		{Code: ErrorEndpointDiscovery, Reason: "Tekton Results endpoint discovery failed", HttpCode: http.StatusServiceUnavailable},
		{Code: ErrorConfigNotFound, Reason: "Reader configuration not found", HttpCode: http.StatusNotFound},
	}
}

type ServiceError struct {
	// Code is the numeric and distinct ID for the error
	Code ServiceErrorCode
	// Reason is the context-specific reason the error was generated
	Reason string
	// HttpCode is the HttpCode associated with the error when the error is returned as an API response
	HttpCode int
	// Body carries the raw upstream payload for diagnostics (MalformedResponse only)
	Body []byte
}

// New Reason can be a string with format verbs, which will be replaced by the specified values
func New(code ServiceErrorCode, reason string, values ...interface{}) *ServiceError {
	exists, err := Find(code)
	if !exists {
		err = &ServiceError{Code: ErrorGeneral, Reason: "Unspecified error", HttpCode: http.StatusInternalServerError}
	}

	if reason != "" {
		err.Reason = fmt.Sprintf(reason, values...)
	}

	return err
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", *CodeStr(e.Code), e.Reason)
}

func (e *ServiceError) AsError() error {
	return fmt.Errorf("%s", e.Error())
}

func (e *ServiceError) Is404() bool {
	return e.Code == ErrorNotFound
}

func (e *ServiceError) IsUnsupportedOperator() bool {
	return e.Code == ErrorUnsupportedOperator
}

func (e *ServiceError) IsMalformedResponse() bool {
	return e.Code == ErrorMalformedResponse
}

func CodeStr(code ServiceErrorCode) *string {
	str := fmt.Sprintf("%s-%d", ErrorCodePrefix, code)
	return &str
}

func NotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorNotFound, reason, values...)
}

func GeneralError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorGeneral, reason, values...)
}

func Validation(reason string, values ...interface{}) *ServiceError {
	return New(ErrorValidation, reason, values...)
}

func BadRequest(reason string, values ...interface{}) *ServiceError {
	return New(ErrorBadRequest, reason, values...)
}

func UnsupportedOperator(operator string) *ServiceError {
	return New(ErrorUnsupportedOperator, "Tekton results operator '%s' conversion not implemented", operator)
}

// MalformedResponse keeps the raw body so callers can log what the upstream sent.
func MalformedResponse(body []byte, reason string, values ...interface{}) *ServiceError {
	err := New(ErrorMalformedResponse, reason, values...)
	err.Body = body
	return err
}

func KubernetesError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorKubernetesError, reason, values...)
}

func ResultsAPIError(reason string, values ...interface{}) *ServiceError {
	return New(ErrorResultsAPIError, reason, values...)
}

func EndpointDiscovery(reason string, values ...interface{}) *ServiceError {
	return New(ErrorEndpointDiscovery, reason, values...)
}

func ConfigNotFound(reason string, values ...interface{}) *ServiceError {
	return New(ErrorConfigNotFound, reason, values...)
}

// IsNotFound reports whether err is a NotFound service error or an API error
// carrying a 404, anywhere in its chain.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Is404() {
		return true
	}
	if apiErr, ok := IsAPIError(err); ok && apiErr.IsNotFound() {
		return true
	}
	return false
}

// IsServiceError checks if an error is a ServiceError with the given code.
func IsServiceError(err error, code ServiceErrorCode) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Code == code
}
