package config_loader

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// -----------------------------------------------------------------------------
// Struct Validator (go-playground/validator integration)
// -----------------------------------------------------------------------------

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// extractYamlTagName extracts the yaml tag name from a struct field.
// Returns the Go field name if no yaml tag is defined.
func extractYamlTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// getStructValidator returns a singleton validator instance with custom validations registered
func getStructValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New()

		//nolint:errcheck // known-good registration
		_ = structValidator.RegisterValidation("duration", validateDuration)

		// Use yaml tag names for field names in errors
		structValidator.RegisterTagNameFunc(extractYamlTagName)
	})
	return structValidator
}

// validateDuration accepts anything time.ParseDuration accepts
func validateDuration(fl validator.FieldLevel) bool {
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// ValidateStruct validates a struct using go-playground/validator tags.
// Returns a ValidationErrors with all validation failures.
func ValidateStruct(s interface{}) *ValidationErrors {
	v := getStructValidator()
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors := &ValidationErrors{}

	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			validationErrors.Add(formatFieldPath(e.Namespace()), formatErrorMessage(e))
		}
	} else {
		validationErrors.Add("", err.Error())
	}

	return validationErrors
}

// formatErrorMessage renders one failure, e.g. "is required" or
// `"grpc" is invalid (allowed: direct, proxy)`.
func formatErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		parts := strings.Fields(e.Param())
		if len(parts) == 2 {
			return fmt.Sprintf("is required when %s is %q", lowerFirst(parts[0]), parts[1])
		}
		return "is required"
	case "eq":
		return fmt.Sprintf("invalid value %q (expected: %q)", e.Value(), e.Param())
	case "oneof":
		return fmt.Sprintf("%q is invalid (allowed: %s)", e.Value(), strings.ReplaceAll(e.Param(), " ", ", "))
	case "duration":
		return fmt.Sprintf("%q is not a valid duration (e.g. 30s, 2m)", e.Value())
	case "url":
		return fmt.Sprintf("%q is not a valid URL", e.Value())
	case "numeric":
		return fmt.Sprintf("%q is not a port number", e.Value())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", e.Param())
	default:
		return fmt.Sprintf("failed validation %s", e.Tag())
	}
}

// formatFieldPath converts validator namespace to our path format
// e.g., "ReaderConfig.spec.http.timeout" -> "spec.http.timeout"
func formatFieldPath(namespace string) string {
	parts := strings.SplitN(namespace, ".", 2)
	if len(parts) < 2 {
		return lowerFirst(namespace)
	}
	return parts[1]
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
