package filter

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
)

var (
	recordEnv     *cel.Env
	recordEnvErr  error
	recordEnvOnce sync.Once
)

// recordsEnv declares the identifiers the results API exposes to record
// filters. The record payload is dynamic, so data is typed as dyn.
func recordsEnv() (*cel.Env, error) {
	recordEnvOnce.Do(func() {
		recordEnv, recordEnvErr = cel.NewEnv(
			cel.Variable("data", cel.DynType),
			cel.Variable("data_type", cel.StringType),
			cel.Variable("name", cel.StringType),
			cel.Variable("uid", cel.StringType),
			cel.Variable("parent", cel.StringType),
			cel.Variable("create_time", cel.TimestampType),
			cel.Variable("update_time", cel.TimestampType),
			cel.Variable("annotations", cel.MapType(cel.StringType, cel.StringType)),
			cel.Variable("summary", cel.DynType),
		)
	})
	return recordEnv, recordEnvErr
}

// Validate type-checks a filter expression against the record environment.
// An empty expression is valid.
func Validate(expression string) error {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil
	}

	env, err := recordsEnv()
	if err != nil {
		return fmt.Errorf("failed to create CEL environment: %w", err)
	}

	if _, issues := env.Compile(expression); issues != nil && issues.Err() != nil {
		return apperrors.Validation("invalid filter expression %q: %v", expression, issues.Err())
	}
	return nil
}
