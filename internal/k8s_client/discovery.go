package k8s_client

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Discovery says where to look for an object: by name when GetName is set,
// else by label selector. An empty namespace means cluster scope.
type Discovery interface {
	GetNamespace() string
	GetName() string
	GetLabelSelector() string
	IsSingleResource() bool
}

// DiscoveryConfig is the plain Discovery
type DiscoveryConfig struct {
	Namespace     string
	ByName        string
	LabelSelector string
}

func (d *DiscoveryConfig) GetNamespace() string     { return d.Namespace }
func (d *DiscoveryConfig) GetName() string          { return d.ByName }
func (d *DiscoveryConfig) GetLabelSelector() string { return d.LabelSelector }
func (d *DiscoveryConfig) IsSingleResource() bool   { return d.ByName != "" }

// DiscoverResources returns the named object as a one-item list, or every
// object matching the selector. A nil discovery yields an empty list.
// NotFound on a named lookup is returned unwrapped.
func (c *Client) DiscoverResources(ctx context.Context, gvk schema.GroupVersionKind, discovery Discovery) (*unstructured.UnstructuredList, error) {
	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(gvk)
	if discovery == nil {
		return list, nil
	}

	if !discovery.IsSingleResource() {
		return c.ListResources(ctx, gvk, discovery.GetNamespace(), discovery.GetLabelSelector())
	}

	obj, err := c.GetResource(ctx, gvk, discovery.GetNamespace(), discovery.GetName())
	if err != nil {
		return list, err
	}
	list.Items = []unstructured.Unstructured{*obj}
	return list, nil
}
