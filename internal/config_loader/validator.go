package config_loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/openshift-pipelines/tekton-results-reader/internal/filter"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Path, e.Message)
}

// ValidationErrors holds multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range ve.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n  - %s", len(ve.Errors), strings.Join(msgs, "\n  - "))
}

func (ve *ValidationErrors) Add(path, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Path: path, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// -----------------------------------------------------------------------------
// Validator
// -----------------------------------------------------------------------------

// Validator performs the cross-field checks struct tags cannot express
type Validator struct {
	config *ReaderConfig
	errors *ValidationErrors
}

func newValidator(config *ReaderConfig) *Validator {
	return &Validator{
		config: config,
		errors: &ValidationErrors{},
	}
}

// Validate runs every semantic check and returns all failures at once.
func (v *Validator) Validate() error {
	if v.config == nil {
		return fmt.Errorf("config is nil")
	}

	v.validateTransport()
	v.validateEndpoint()
	v.validateFiles()
	v.validateDefaultFilter()

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// Validate performs semantic validation of a loaded config
func Validate(config *ReaderConfig) error {
	return newValidator(config).Validate()
}

func (v *Validator) validateTransport() {
	if v.config.Spec.Transport == TransportProxy && v.config.Spec.Proxy.URL == "" {
		v.errors.Add(FieldSpec+"."+FieldProxy+"."+FieldURL, "is required when transport is \"proxy\"")
	}
}

func (v *Validator) validateEndpoint() {
	host := v.config.Spec.Endpoint.Host
	if strings.Contains(host, "://") {
		v.errors.Add(FieldSpec+"."+FieldEndpoint+"."+FieldHost, fmt.Sprintf("%q must not include a scheme", host))
	}
	if strings.Contains(host, "/") && !strings.Contains(host, "://") {
		v.errors.Add(FieldSpec+"."+FieldEndpoint+"."+FieldHost, fmt.Sprintf("%q must be host[:port] without a path", host))
	}
}

func (v *Validator) validateFiles() {
	files := map[string]string{
		FieldSpec + "." + FieldHTTP + "." + FieldBearerTokenFile:  v.config.Spec.HTTP.BearerTokenFile,
		FieldSpec + "." + FieldKubernetes + "." + FieldKubeConfig: v.config.Spec.Kubernetes.KubeConfig,
	}
	for path, file := range files {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			v.errors.Add(path, fmt.Sprintf("%q is not readable: %v", file, err))
		}
	}
}

func (v *Validator) validateDefaultFilter() {
	if v.config.Spec.Defaults.Filter == "" {
		return
	}
	if err := filter.Validate(v.config.Spec.Defaults.Filter); err != nil {
		v.errors.Add(FieldSpec+"."+FieldDefaults+"."+FieldFilter, err.Error())
	}
}
