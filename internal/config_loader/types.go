package config_loader

// ReaderConfig is the complete results reader configuration
type ReaderConfig struct {
	APIVersion string           `yaml:"apiVersion" validate:"required"`
	Kind       string           `yaml:"kind" validate:"required,eq=ResultsReaderConfig"`
	Metadata   Metadata         `yaml:"metadata"`
	Spec       ReaderConfigSpec `yaml:"spec"`
}

// Metadata names the reader instance; the name becomes the log component
type Metadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// ReaderConfigSpec contains the reader specification
type ReaderConfigSpec struct {
	Transport  string           `yaml:"transport" validate:"required,oneof=direct proxy"`
	Endpoint   EndpointConfig   `yaml:"endpoint"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	HTTP       HTTPConfig       `yaml:"http"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Defaults   DefaultsConfig   `yaml:"defaults"`
	Server     ServerConfig     `yaml:"server"`
}

// EndpointConfig controls how the results API host is found for the direct
// transport.
type EndpointConfig struct {
	Discover string `yaml:"discover" validate:"required,oneof=tektonresult route static"`
	// Host is "host[:port]", no scheme. Required for static discovery.
	Host string `yaml:"host,omitempty" validate:"required_if=Discover static"`
	// RouteNamespace overrides the namespace the Route is looked up in
	RouteNamespace string `yaml:"routeNamespace,omitempty"`
}

// ProxyConfig configures the proxied transport
type ProxyConfig struct {
	// URL is the console (or results proxy) base URL
	URL string `yaml:"url,omitempty" validate:"omitempty,url"`
}

// HTTPConfig contains the HTTP client settings shared by both transports
type HTTPConfig struct {
	Timeout            string `yaml:"timeout,omitempty" validate:"omitempty,duration"`
	RetryAttempts      int    `yaml:"retryAttempts,omitempty" validate:"gte=0,lte=10"`
	RetryBackoff       string `yaml:"retryBackoff,omitempty" validate:"omitempty,oneof=exponential linear constant"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify,omitempty"`
	// BearerTokenFile holds the token sent to the results API. Empty means
	// the token of the Kubernetes credentials is used.
	BearerTokenFile string `yaml:"bearerTokenFile,omitempty"`
}

// KubernetesConfig contains Kubernetes client settings
type KubernetesConfig struct {
	// KubeConfig is a kubeconfig path; empty means in-cluster
	KubeConfig string  `yaml:"kubeconfig,omitempty"`
	QPS        float32 `yaml:"qps,omitempty" validate:"gte=0"`
	Burst      int     `yaml:"burst,omitempty" validate:"gte=0"`
}

// DefaultsConfig holds query defaults applied when the caller does not set them
type DefaultsConfig struct {
	PageSize int `yaml:"pageSize,omitempty" validate:"omitempty,min=5,max=10000"`
	// Filter is ANDed into every records query
	Filter string `yaml:"filter,omitempty"`
	// ValidateFilters compiles every filter with CEL before sending it
	ValidateFilters bool `yaml:"validateFilters,omitempty"`
}

// ServerConfig holds the listen ports used by serve
type ServerConfig struct {
	HealthPort  string `yaml:"healthPort,omitempty" validate:"omitempty,numeric"`
	MetricsPort string `yaml:"metricsPort,omitempty" validate:"omitempty,numeric"`
	ProxyPort   string `yaml:"proxyPort,omitempty" validate:"omitempty,numeric"`
}
