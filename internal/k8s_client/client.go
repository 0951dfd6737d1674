package k8s_client

import (
	"context"
	"os"
	"strings"

	"github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Client reads cluster objects through controller-runtime
type Client struct {
	client     client.Client
	restConfig *rest.Config
	log        logger.Logger
}

// ClientConfig holds configuration for creating a Kubernetes client
type ClientConfig struct {
	// KubeConfigPath is the path to kubeconfig file.
	// Leave empty to use in-cluster ServiceAccount authentication.
	KubeConfigPath string
	// QPS is the queries per second rate limiter
	QPS float32
	// Burst is the burst rate limiter
	Burst int
}

// LoadRestConfig builds the rest.Config for config.
//
// With an empty KubeConfigPath the in-cluster ServiceAccount is used,
// which is how the proxy runs next to the console. Otherwise the kubeconfig
// at that path is loaded, which is how the CLI runs from a workstation.
func LoadRestConfig(ctx context.Context, config ClientConfig, log logger.Logger) (*rest.Config, error) {
	var restConfig *rest.Config
	var err error

	if config.KubeConfigPath == "" {
		restConfig, err = rest.InClusterConfig()
		if err != nil {
			return nil, errors.KubernetesError("failed to create in-cluster config: %v", err)
		}
		log.Info(ctx, "Using in-cluster Kubernetes configuration (ServiceAccount)")
	} else {
		restConfig, err = clientcmd.BuildConfigFromFlags("", config.KubeConfigPath)
		if err != nil {
			return nil, errors.KubernetesError("failed to load kubeconfig from %s: %v", config.KubeConfigPath, err)
		}
		log.Infof(ctx, "Using kubeconfig from: %s", config.KubeConfigPath)
	}

	restConfig.QPS = config.QPS
	if restConfig.QPS == 0 {
		restConfig.QPS = 20.0
	}
	restConfig.Burst = config.Burst
	if restConfig.Burst == 0 {
		restConfig.Burst = 40
	}
	return restConfig, nil
}

// NewClient creates a Kubernetes client from LoadRestConfig.
func NewClient(ctx context.Context, config ClientConfig, log logger.Logger) (*Client, error) {
	restConfig, err := LoadRestConfig(ctx, config, log)
	if err != nil {
		return nil, err
	}
	return NewClientFromConfig(ctx, restConfig, log)
}

// NewClientFromConfig creates a client from an existing rest.Config
func NewClientFromConfig(_ context.Context, restConfig *rest.Config, log logger.Logger) (*Client, error) {
	k8sClient, err := client.New(restConfig, client.Options{})
	if err != nil {
		return nil, errors.KubernetesError("failed to create kubernetes client: %v", err)
	}
	c := NewClientFromClient(k8sClient, log)
	c.restConfig = restConfig
	return c, nil
}

// BearerToken returns the token the cluster credentials carry, reading the
// token file when the token is not inline. The results API accepts the same
// token. Returns "" for certificate-based credentials.
func (c *Client) BearerToken() (string, error) {
	if c.restConfig == nil {
		return "", nil
	}
	if c.restConfig.BearerToken != "" {
		return c.restConfig.BearerToken, nil
	}
	if c.restConfig.BearerTokenFile == "" {
		return "", nil
	}
	raw, err := os.ReadFile(c.restConfig.BearerTokenFile)
	if err != nil {
		return "", errors.KubernetesError("failed to read token file %s: %v", c.restConfig.BearerTokenFile, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// NewClientFromClient wraps an existing controller-runtime client, such as
// the fake client in tests.
func NewClientFromClient(c client.Client, log logger.Logger) *Client {
	return &Client{
		client: c,
		log:    log,
	}
}

// GetResource retrieves a specific Kubernetes resource by GVK, namespace, and name
func (c *Client) GetResource(ctx context.Context, gvk schema.GroupVersionKind, namespace, name string) (*unstructured.Unstructured, error) {
	c.log.Debugf(ctx, "Getting resource: %s/%s (namespace: %s)", gvk.Kind, name, namespace)

	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(gvk)

	key := types.NamespacedName{
		Name:      name,
		Namespace: namespace,
	}

	if err := c.client.Get(ctx, key, obj); err != nil {
		// Don't wrap NotFound errors so callers can check for them
		if apierrors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.KubernetesError("failed to get resource %s/%s (namespace: %s): %v", gvk.Kind, name, namespace, err)
	}

	return obj, nil
}

// ListResources lists Kubernetes resources by GVK, namespace, and label selector
func (c *Client) ListResources(ctx context.Context, gvk schema.GroupVersionKind, namespace string, labelSelector string) (*unstructured.UnstructuredList, error) {
	c.log.Debugf(ctx, "Listing resources: %s (namespace: %s, selector: %s)", gvk.Kind, namespace, labelSelector)

	list := &unstructured.UnstructuredList{}
	list.SetGroupVersionKind(gvk)

	opts := []client.ListOption{}
	if namespace != "" {
		opts = append(opts, client.InNamespace(namespace))
	}
	if labelSelector != "" {
		selector, err := metav1.ParseToLabelSelector(labelSelector)
		if err != nil {
			return nil, errors.KubernetesError("invalid label selector %s: %v", labelSelector, err)
		}
		labelMap, err := metav1.LabelSelectorAsSelector(selector)
		if err != nil {
			return nil, errors.KubernetesError("failed to convert label selector: %v", err)
		}
		opts = append(opts, client.MatchingLabelsSelector{Selector: labelMap})
	}

	if err := c.client.List(ctx, list, opts...); err != nil {
		return nil, errors.KubernetesError("failed to list resources %s (namespace: %s, selector: %s): %v", gvk.Kind, namespace, labelSelector, err)
	}

	c.log.Debugf(ctx, "Listed resources: %s (found %d items)", gvk.Kind, len(list.Items))
	return list, nil
}
