package constants

// Annotations stamped on objects decoded from the results store. The values
// match the ones the pipelines console plugin looks for, so decoded objects
// can be handed to the same consumers as live cluster objects.
const (
	// AnnotationLoadedFromResults marks every object that was read from
	// Tekton Results instead of the Kubernetes API.
	// Value: "true"
	AnnotationLoadedFromResults = "resource.loaded.from.tektonResults"

	// AnnotationDeletedInK8s replaces metadata.deletionTimestamp on archived
	// objects: the object is gone from the cluster, not being deleted.
	// Value: "true"
	AnnotationDeletedInK8s = "resource.deleted.in.k8s"
)

// AllNamespacesKey is the sentinel the console uses for "all namespaces".
const AllNamespacesKey = "#ALL_NS#"

// Tekton Results service defaults
const (
	// ResultsAPIPrefix is the REST prefix of the results API (v1alpha2)
	ResultsAPIPrefix = "/apis/results.tekton.dev/v1alpha2/parents/"

	// ResultsServiceName is the Service and Route name of the results API
	ResultsServiceName = "tekton-results-api-service"

	// DefaultResultsNamespace is used when the TektonResult CR names no target namespace
	DefaultResultsNamespace = "openshift-pipelines"

	// DefaultResultsPort is used when the TektonResult CR names no server port
	DefaultResultsPort = "8080"

	// TektonResultName is the name of the cluster-scoped TektonResult CR
	TektonResultName = "result"
)

// TektonResult and Route GVK constants
const (
	TektonResultGroup   = "operator.tekton.dev"
	TektonResultVersion = "v1alpha1"
	TektonResultKind    = "TektonResult"

	RouteGroup   = "route.openshift.io"
	RouteVersion = "v1"
	RouteKind    = "Route"
)

// Console proxy endpoints (relative to the proxy base URL)
const (
	ProxyRecordsPath = "/api/dev-console/tekton-results/get"
	ProxyLogsPath    = "/api/dev-console/tekton-results/logs"
)
