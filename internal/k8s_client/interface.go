package k8s_client

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// K8sClient is the read-only view of the cluster the endpoint resolvers need.
// It allows for mocking in unit tests without a real cluster.
type K8sClient interface {
	// GetResource returns a single object. NotFound errors are returned
	// unwrapped so callers can test them with apierrors.IsNotFound.
	GetResource(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (*unstructured.Unstructured, error)

	// ListResources lists objects by namespace and label selector.
	ListResources(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) (*unstructured.UnstructuredList, error)

	// DiscoverResources fetches by name or by selector depending on discovery.
	DiscoverResources(ctx context.Context, gvk schema.GroupVersionKind, discovery Discovery) (*unstructured.UnstructuredList, error)
}

var _ K8sClient = (*Client)(nil)
