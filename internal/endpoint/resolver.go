// Package endpoint locates the Tekton Results API host ("host:port").
package endpoint

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openshift-pipelines/tekton-results-reader/internal/k8s_client"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/constants"
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Resolver returns the results API host, without scheme.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

var (
	TektonResultGVK = mustGVK(constants.TektonResultKind, constants.TektonResultGroup+"/"+constants.TektonResultVersion)
	RouteGVK        = mustGVK(constants.RouteKind, constants.RouteGroup+"/"+constants.RouteVersion)
)

func mustGVK(kind, apiVersion string) schema.GroupVersionKind {
	gvk, err := k8s_client.GVKFromKindAndApiVersion(kind, apiVersion)
	if err != nil {
		panic(err)
	}
	return gvk
}

// -----------------------------------------------------------------------------
// Static
// -----------------------------------------------------------------------------

// StaticResolver serves a configured host.
type StaticResolver struct {
	Host string
}

// Resolve implements Resolver
func (s StaticResolver) Resolve(_ context.Context) (string, error) {
	host := strings.TrimSpace(s.Host)
	if host == "" {
		return "", apperrors.EndpointDiscovery("no results API host configured")
	}
	return trimScheme(host), nil
}

// -----------------------------------------------------------------------------
// TektonResult CR
// -----------------------------------------------------------------------------

// TektonResultResolver derives the in-cluster service address from the
// operator's cluster-scoped TektonResult named "result".
type TektonResultResolver struct {
	client k8s_client.K8sClient
	log    logger.Logger
}

// NewTektonResultResolver creates a resolver backed by the TektonResult CR
func NewTektonResultResolver(client k8s_client.K8sClient, log logger.Logger) *TektonResultResolver {
	return &TektonResultResolver{client: client, log: log}
}

// Resolve implements Resolver. The host is tls_hostname_override when set,
// else the results service in spec.targetNamespace, else the service in the
// default namespace. The port is spec.server_port, or 8080.
func (r *TektonResultResolver) Resolve(ctx context.Context) (string, error) {
	cr, err := r.client.GetResource(ctx, TektonResultGVK, "", constants.TektonResultName)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", apperrors.EndpointDiscovery("TektonResult %q not found: %v", constants.TektonResultName, err)
		}
		return "", apperrors.EndpointDiscovery("failed to read TektonResult %q: %v", constants.TektonResultName, err)
	}

	host := HostFromTektonResult(cr)
	r.log.Debugf(ctx, "Resolved results API from TektonResult: %s", host)
	return host, nil
}

// HostFromTektonResult applies the host derivation to an already fetched CR.
func HostFromTektonResult(cr *unstructured.Unstructured) string {
	port := specString(cr, "server_port")
	if port == "" {
		port = constants.DefaultResultsPort
	}

	if tlsHostname := specString(cr, "tls_hostname_override"); tlsHostname != "" {
		return tlsHostname + ":" + port
	}

	namespace := specString(cr, "targetNamespace")
	if namespace == "" {
		namespace = constants.DefaultResultsNamespace
	}
	return fmt.Sprintf("%s.%s.svc.cluster.local:%s", constants.ResultsServiceName, namespace, port)
}

// specString reads spec.<field>, accepting numbers as well as strings since
// server_port shows up as either depending on how the CR was written.
func specString(cr *unstructured.Unstructured, field string) string {
	if cr == nil {
		return ""
	}
	v, found, err := unstructured.NestedFieldNoCopy(cr.Object, "spec", field)
	if err != nil || !found || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%d", int64(t))
	default:
		return fmt.Sprintf("%v", t)
	}
}

// -----------------------------------------------------------------------------
// Route
// -----------------------------------------------------------------------------

// RouteResolver returns the host of the results API Route, for clients
// running outside the cluster. Without a configured namespace the Route is
// looked up in the TektonResult's targetNamespace.
type RouteResolver struct {
	client    k8s_client.K8sClient
	namespace string
	log       logger.Logger
}

// NewRouteResolver creates a resolver reading the Route in namespace.
func NewRouteResolver(client k8s_client.K8sClient, namespace string, log logger.Logger) *RouteResolver {
	return &RouteResolver{client: client, namespace: namespace, log: log}
}

// Resolve implements Resolver
func (r *RouteResolver) Resolve(ctx context.Context) (string, error) {
	namespace, err := r.routeNamespace(ctx)
	if err != nil {
		return "", err
	}

	list, err := r.client.DiscoverResources(ctx, RouteGVK, &k8s_client.DiscoveryConfig{
		Namespace: namespace,
		ByName:    constants.ResultsServiceName,
	})
	if err != nil {
		return "", apperrors.EndpointDiscovery("failed to read Route %s/%s: %v", namespace, constants.ResultsServiceName, err)
	}
	if len(list.Items) == 0 {
		return "", apperrors.EndpointDiscovery("Route %s/%s not found", namespace, constants.ResultsServiceName)
	}

	host, _, _ := unstructured.NestedString(list.Items[0].Object, "spec", "host")
	if host == "" {
		return "", apperrors.EndpointDiscovery("Route %s/%s has no spec.host", namespace, constants.ResultsServiceName)
	}
	r.log.Debugf(ctx, "Resolved results API from Route: %s", host)
	return host, nil
}

func (r *RouteResolver) routeNamespace(ctx context.Context) (string, error) {
	if r.namespace != "" {
		return r.namespace, nil
	}
	cr, err := r.client.GetResource(ctx, TektonResultGVK, "", constants.TektonResultName)
	if err != nil && !apierrors.IsNotFound(err) {
		return "", apperrors.EndpointDiscovery("failed to read TektonResult %q: %v", constants.TektonResultName, err)
	}
	if ns := specString(cr, "targetNamespace"); ns != "" {
		return ns, nil
	}
	return constants.DefaultResultsNamespace, nil
}

// -----------------------------------------------------------------------------
// Memoisation
// -----------------------------------------------------------------------------

// CachedResolver memoises the first successful resolution for the life of
// the process. Failures are not cached.
type CachedResolver struct {
	next Resolver

	mu   sync.Mutex
	host string
}

// NewCachedResolver wraps next
func NewCachedResolver(next Resolver) *CachedResolver {
	return &CachedResolver{next: next}
}

// Resolve implements Resolver
func (c *CachedResolver) Resolve(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host != "" {
		return c.host, nil
	}
	host, err := c.next.Resolve(ctx)
	if err != nil {
		return "", err
	}
	c.host = host
	return host, nil
}

// Reset forgets the memoised host.
func (c *CachedResolver) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.host = ""
}

func trimScheme(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}
