package config_loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
)

// API version constants
const (
	APIVersionV1Alpha1 = "results.openshift.io/v1alpha1"
	ExpectedKind       = "ResultsReaderConfig"
)

// Environment variable for config file path
const EnvConfigPath = "RESULTS_READER_CONFIG_PATH"

// SupportedAPIVersions contains all supported apiVersion values
var SupportedAPIVersions = []string{
	APIVersionV1Alpha1,
}

// -----------------------------------------------------------------------------
// Loader Options (Functional Options Pattern)
// -----------------------------------------------------------------------------

// LoaderOption configures the loader behavior
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	skipSemanticValidation bool
}

// WithSkipSemanticValidation skips the cross-field and CEL checks
func WithSkipSemanticValidation() LoaderOption {
	return func(c *loaderConfig) {
		c.skipSemanticValidation = true
	}
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// ConfigPathFromEnv returns the config file path from the RESULTS_READER_CONFIG_PATH environment variable
func ConfigPathFromEnv() string {
	return os.Getenv(EnvConfigPath)
}

// Default returns the configuration used when no file is given: direct
// transport, TektonResult discovery, in-cluster credentials.
func Default() *ReaderConfig {
	cfg := &ReaderConfig{
		APIVersion: APIVersionV1Alpha1,
		Kind:       ExpectedKind,
		Metadata:   Metadata{Name: "tekton-results-reader"},
	}
	applyDefaults(cfg)
	return cfg
}

// Load loads the reader configuration from a YAML file.
// If filePath is empty, it reads RESULTS_READER_CONFIG_PATH; if that is empty
// too, Default() is returned. A path that names no file is ConfigNotFound.
func Load(filePath string, opts ...LoaderOption) (*ReaderConfig, error) {
	if filePath == "" {
		filePath = ConfigPathFromEnv()
	}
	if filePath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ConfigNotFound("config file %q does not exist", filePath)
		}
		return nil, fmt.Errorf("failed to read config file %q: %w", filePath, err)
	}

	return Parse(data, opts...)
}

// Parse parses reader configuration from YAML bytes
func Parse(data []byte, opts ...LoaderOption) (*ReaderConfig, error) {
	cfg := &loaderConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var config ReaderConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	applyDefaults(&config)

	if err := runValidationPipeline(&config, cfg); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(c *ReaderConfig) {
	s := &c.Spec
	if s.Transport == "" {
		s.Transport = TransportDirect
	}
	if s.Endpoint.Discover == "" {
		if s.Endpoint.Host != "" {
			s.Endpoint.Discover = DiscoverStatic
		} else {
			s.Endpoint.Discover = DiscoverTektonResult
		}
	}
	if s.HTTP.Timeout == "" {
		s.HTTP.Timeout = DefaultTimeout
	}
	if s.HTTP.RetryAttempts == 0 {
		s.HTTP.RetryAttempts = DefaultRetryAttempts
	}
	if s.HTTP.RetryBackoff == "" {
		s.HTTP.RetryBackoff = DefaultRetryBackoff
	}
	if s.Server.HealthPort == "" {
		s.Server.HealthPort = DefaultHealthPort
	}
	if s.Server.MetricsPort == "" {
		s.Server.MetricsPort = DefaultMetricsPort
	}
	if s.Server.ProxyPort == "" {
		s.Server.ProxyPort = DefaultProxyPort
	}
}

// -----------------------------------------------------------------------------
// Validation Pipeline
// -----------------------------------------------------------------------------

// validatorFunc is a function that validates a config and returns an error
type validatorFunc func(*ReaderConfig) error

// runValidationPipeline executes all validators in sequence
func runValidationPipeline(config *ReaderConfig, cfg *loaderConfig) error {
	coreValidators := []validatorFunc{
		validateAPIVersion,
		validateStructure,
	}

	for _, v := range coreValidators {
		if err := v(config); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	if !cfg.skipSemanticValidation {
		if err := Validate(config); err != nil {
			return fmt.Errorf("semantic validation failed: %w", err)
		}
	}

	return nil
}

func validateAPIVersion(config *ReaderConfig) error {
	for _, v := range SupportedAPIVersions {
		if config.APIVersion == v {
			return nil
		}
	}
	return fmt.Errorf("unsupported apiVersion %q (supported: %v)", config.APIVersion, SupportedAPIVersions)
}

func validateStructure(config *ReaderConfig) error {
	if errs := ValidateStruct(config); errs != nil && errs.HasErrors() {
		return errs
	}
	return nil
}
