package k8s_client

import (
	"context"
	"sync"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// MockK8sClient implements K8sClient for testing.
// Resources are keyed by "namespace/name"; cluster-scoped objects use "/name".
type MockK8sClient struct {
	mu sync.Mutex

	Resources map[string]*unstructured.Unstructured

	// Mock responses - set these to control behavior
	GetResourceError error
	ListResult       *unstructured.UnstructuredList
	ListError        error

	// GetCalls counts GetResource invocations
	GetCalls int
}

// NewMockK8sClient creates a new mock K8s client for testing
func NewMockK8sClient() *MockK8sClient {
	return &MockK8sClient{
		Resources: make(map[string]*unstructured.Unstructured),
	}
}

// AddResource stores obj under its namespace and name
func (m *MockK8sClient) AddResource(obj *unstructured.Unstructured) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resources[obj.GetNamespace()+"/"+obj.GetName()] = obj.DeepCopy()
}

// Calls returns how many times GetResource was called
func (m *MockK8sClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetCalls
}

// GetResource returns a NotFound error when the resource doesn't exist,
// matching real client behavior.
func (m *MockK8sClient) GetResource(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (*unstructured.Unstructured, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++

	if m.GetResourceError != nil {
		return nil, m.GetResourceError
	}
	if res, ok := m.Resources[namespace+"/"+name]; ok {
		return res.DeepCopy(), nil
	}
	gr := schema.GroupResource{Group: gvk.Group, Resource: gvk.Kind + "s"}
	return nil, apierrors.NewNotFound(gr, name)
}

// ListResources implements K8sClient.ListResources
func (m *MockK8sClient) ListResources(ctx context.Context, gvk schema.GroupVersionKind, namespace, labelSelector string) (*unstructured.UnstructuredList, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	if m.ListResult != nil {
		return m.ListResult, nil
	}
	return &unstructured.UnstructuredList{}, nil
}

// DiscoverResources implements K8sClient.DiscoverResources
func (m *MockK8sClient) DiscoverResources(ctx context.Context, gvk schema.GroupVersionKind, discovery Discovery) (*unstructured.UnstructuredList, error) {
	list := &unstructured.UnstructuredList{}
	if discovery == nil {
		return list, nil
	}
	if discovery.IsSingleResource() {
		obj, err := m.GetResource(ctx, gvk, discovery.GetNamespace(), discovery.GetName())
		if err != nil {
			return list, err
		}
		list.Items = []unstructured.Unstructured{*obj}
		return list, nil
	}
	return m.ListResources(ctx, gvk, discovery.GetNamespace(), discovery.GetLabelSelector())
}

var _ K8sClient = (*MockK8sClient)(nil)
