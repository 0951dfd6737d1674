package config_loader

// Field path constants for the configuration structure, used in validation
// messages so paths read the same as the YAML.

// Top-level field names
const (
	FieldSpec     = "spec"
	FieldMetadata = "metadata"
)

// Spec section field names
const (
	FieldTransport  = "transport"
	FieldEndpoint   = "endpoint"
	FieldProxy      = "proxy"
	FieldHTTP       = "http"
	FieldKubernetes = "kubernetes"
	FieldDefaults   = "defaults"
	FieldServer     = "server"
)

// Nested field names
const (
	FieldHost            = "host"
	FieldDiscover        = "discover"
	FieldURL             = "url"
	FieldTimeout         = "timeout"
	FieldBearerTokenFile = "bearerTokenFile"
	FieldKubeConfig      = "kubeconfig"
	FieldPageSize        = "pageSize"
	FieldFilter          = "filter"
)

// Transport modes
const (
	TransportDirect = "direct"
	TransportProxy  = "proxy"
)

// Endpoint discovery modes
const (
	// DiscoverTektonResult reads the cluster-scoped TektonResult CR
	DiscoverTektonResult = "tektonresult"
	// DiscoverRoute reads the results API Route (from outside the cluster)
	DiscoverRoute = "route"
	// DiscoverStatic uses endpoint.host verbatim
	DiscoverStatic = "static"
)

// Defaults applied to fields left empty in the file
const (
	DefaultTimeout       = "30s"
	DefaultRetryAttempts = 1
	DefaultRetryBackoff  = "exponential"
	DefaultHealthPort    = "8080"
	DefaultMetricsPort   = "9090"
	DefaultProxyPort     = "9443"
)
