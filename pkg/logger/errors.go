package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// WithErrorField returns a context carrying the error message as the "error"
// log field. Unexpected errors also get a "stack_trace" field; expected
// conditions (cancellation, NotFound, auth failures, 4xx responses, known
// service errors) do not.
func WithErrorField(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	ctx = WithLogField(ctx, "error", err.Error())
	if isExpectedError(err) {
		return ctx
	}
	return WithLogField(ctx, "stack_trace", GetStackTrace(1))
}

func isExpectedError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
		return true
	}

	if apierrors.IsNotFound(err) || apierrors.IsConflict(err) || apierrors.IsAlreadyExists(err) ||
		apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err) || apierrors.IsBadRequest(err) ||
		apierrors.IsServiceUnavailable(err) || apierrors.IsTimeout(err) || apierrors.IsTooManyRequests(err) {
		return true
	}

	if apiErr, ok := apperrors.IsAPIError(err); ok {
		return apiErr.IsClientError() || apiErr.IsTimeout()
	}

	var svcErr *apperrors.ServiceError
	return errors.As(err, &svcErr) && svcErr.Code != apperrors.ErrorGeneral
}

// GetStackTrace returns the current stack trace as a slice of strings
func GetStackTrace(skip int) []string {
	var pcs [32]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var stack []string
	for {
		frame, more := frames.Next()
		stack = append(stack, fmt.Sprintf("%s() %s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return stack
}
