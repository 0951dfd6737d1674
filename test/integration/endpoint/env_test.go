package endpoint_integration

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go/wait"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/openshift-pipelines/tekton-results-reader/internal/endpoint"
	"github.com/openshift-pipelines/tekton-results-reader/internal/k8s_client"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
	"github.com/openshift-pipelines/tekton-results-reader/test/integration/testutil"
)

const (
	// EnvtestAPIServerPort is the port the kube-apiserver listens on
	EnvtestAPIServerPort = "6443/tcp"
	// EnvtestReadyLog is logged once envtest is serving
	EnvtestReadyLog = "Envtest is running"
	// EnvtestBearerToken authenticates against the envtest API server
	EnvtestBearerToken = "test-token"
)

// TestEnv is the shared kube-apiserver plus clients for it
type TestEnv struct {
	container *testutil.SharedContainer
	Config    *rest.Config
	// Admin writes the fixtures the resolvers read
	Admin client.Client
	Log   logger.Logger
	Ctx   context.Context
}

// Cleanup terminates the container
func (e *TestEnv) Cleanup() {
	if e == nil {
		return
	}
	e.container.Cleanup()
}

// NewReaderClient returns a fresh read-only client, so that kinds registered
// after the previous client was built are discoverable.
func (e *TestEnv) NewReaderClient() (*k8s_client.Client, error) {
	return k8s_client.NewClientFromConfig(e.Ctx, e.Config, e.Log)
}

func setupSharedTestEnv() (*TestEnv, error) {
	image := os.Getenv("INTEGRATION_ENVTEST_IMAGE")
	if image == "" {
		return nil, fmt.Errorf("INTEGRATION_ENVTEST_IMAGE environment variable is not set")
	}

	container, err := testutil.StartSharedContainer(testutil.ContainerConfig{
		Name:         "envtest",
		Image:        image,
		ExposedPorts: []string{EnvtestAPIServerPort},
		Env: map[string]string{
			"HTTP_PROXY":  os.Getenv("HTTP_PROXY"),
			"HTTPS_PROXY": os.Getenv("HTTPS_PROXY"),
			"NO_PROXY":    os.Getenv("NO_PROXY"),
		},
		WaitStrategy: wait.ForAll(
			wait.ForListeningPort(EnvtestAPIServerPort).WithPollInterval(500*time.Millisecond),
			wait.ForLog(EnvtestReadyLog).WithPollInterval(500*time.Millisecond),
		).WithDeadline(120 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start envtest container: %w", err)
	}

	apiServer := "https://" + container.GetEndpoint(EnvtestAPIServerPort)
	if err := waitForAPIServerReady(apiServer, 30*time.Second); err != nil {
		container.Cleanup()
		return nil, err
	}

	restConfig := &rest.Config{
		Host:            apiServer,
		BearerToken:     EnvtestBearerToken,
		TLSClientConfig: rest.TLSClientConfig{Insecure: true},
	}
	admin, err := client.New(restConfig, client.Options{})
	if err != nil {
		container.Cleanup()
		return nil, fmt.Errorf("failed to create admin client: %w", err)
	}

	env := &TestEnv{
		container: container,
		Config:    restConfig,
		Admin:     admin,
		Log:       logger.NewTestLogger(),
		Ctx:       context.Background(),
	}
	if err := env.installCRDs(); err != nil {
		container.Cleanup()
		return nil, err
	}
	return env, nil
}

// waitForAPIServerReady polls /healthz until it answers 200
func waitForAPIServerReady(apiServer string, timeout time.Duration) error {
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // envtest serves a self-signed cert
		},
	}

	deadline := time.Now().Add(timeout)
	for {
		req, err := http.NewRequest(http.MethodGet, apiServer+"/healthz", nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+EnvtestBearerToken)

		resp, err := httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("API server not ready after %v", timeout)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func crd(group, version, kind, plural, scope string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "apiextensions.k8s.io/v1",
		"kind":       "CustomResourceDefinition",
		"metadata":   map[string]interface{}{"name": plural + "." + group},
		"spec": map[string]interface{}{
			"group": group,
			"scope": scope,
			"names": map[string]interface{}{
				"kind":     kind,
				"listKind": kind + "List",
				"plural":   plural,
				"singular": plural[:len(plural)-1],
			},
			"versions": []interface{}{
				map[string]interface{}{
					"name":    version,
					"served":  true,
					"storage": true,
					"schema": map[string]interface{}{
						"openAPIV3Schema": map[string]interface{}{
							"type":                                 "object",
							"x-kubernetes-preserve-unknown-fields": true,
						},
					},
				},
			},
		},
	}}
}

// installCRDs registers TektonResult and Route and waits until both kinds
// are served.
func (e *TestEnv) installCRDs() error {
	crds := []*unstructured.Unstructured{
		crd(endpoint.TektonResultGVK.Group, endpoint.TektonResultGVK.Version, endpoint.TektonResultGVK.Kind, "tektonresults", "Cluster"),
		crd(endpoint.RouteGVK.Group, endpoint.RouteGVK.Version, endpoint.RouteGVK.Kind, "routes", "Namespaced"),
	}
	for _, obj := range crds {
		if err := e.Admin.Create(e.Ctx, obj); err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create CRD %s: %w", obj.GetName(), err)
		}
	}

	deadline := time.Now().Add(30 * time.Second)
	for {
		err := e.kindsServed()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("CRDs not served after 30s: %w", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func (e *TestEnv) kindsServed() error {
	reader, err := e.NewReaderClient()
	if err != nil {
		return err
	}
	if _, err := reader.GetResource(e.Ctx, endpoint.TektonResultGVK, "", "probe"); !apierrors.IsNotFound(err) {
		return fmt.Errorf("TektonResult not served: %v", err)
	}
	if _, err := reader.ListResources(e.Ctx, endpoint.RouteGVK, "default", ""); err != nil {
		return fmt.Errorf("Route not served: %w", err)
	}
	return nil
}
