package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"

	"github.com/openshift-pipelines/tekton-results-reader/internal/config_loader"
	"github.com/openshift-pipelines/tekton-results-reader/internal/endpoint"
	"github.com/openshift-pipelines/tekton-results-reader/internal/k8s_client"
	"github.com/openshift-pipelines/tekton-results-reader/internal/results"
	"github.com/openshift-pipelines/tekton-results-reader/internal/results_api"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
	pkgotel "github.com/openshift-pipelines/tekton-results-reader/pkg/otel"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/version"
)

// app is everything a command needs, built once from the configuration
type app struct {
	cfg      *config_loader.ReaderConfig
	log      logger.Logger
	resolver endpoint.Resolver        // nil with the proxy transport
	direct   *results.DirectTransport // nil with the proxy transport
	fetcher  *results.Fetcher
	shutdown func()
}

// loadConfig loads the configuration and applies the --kubeconfig flag, or
// KUBECONFIG when neither flag nor file names one.
func loadConfig() (*config_loader.ReaderConfig, error) {
	cfg, err := config_loader.Load(configPath)
	if err != nil {
		return nil, err
	}
	switch {
	case kubeconfig != "":
		cfg.Spec.Kubernetes.KubeConfig = kubeconfig
	case cfg.Spec.Kubernetes.KubeConfig == "":
		cfg.Spec.Kubernetes.KubeConfig = os.Getenv("KUBECONFIG")
	}
	return cfg, nil
}

// setup loads configuration, logging and tracing and wires the fetcher.
// The returned app's shutdown must be called once the command is done.
func setup(ctx context.Context, query bool, opts ...results.FetcherOption) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.NewLogger(buildLoggerConfig(cfg.ComponentName(), query))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tp, err := pkgotel.InitTracer(cfg.ComponentName(), version.Version, pkgotel.GetTraceSampleRatio(log, ctx))
	if err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to initialize OpenTelemetry")
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	a := &app{
		cfg: cfg,
		log: log,
		shutdown: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), OTelShutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warnf(logger.WithErrorField(shutdownCtx, err), "Failed to shutdown TracerProvider")
			}
		},
	}

	transport, err := a.newTransport(ctx)
	if err != nil {
		a.shutdown()
		return nil, err
	}

	fetcherOpts := []results.FetcherOption{
		results.WithLogger(log),
		results.WithTracerProvider(otel.GetTracerProvider()),
		results.WithFilterValidation(cfg.Spec.Defaults.ValidateFilters),
	}
	a.fetcher = results.NewFetcher(transport, append(fetcherOpts, opts...)...)
	return a, nil
}

func (a *app) newTransport(ctx context.Context) (results.Transport, error) {
	clientOpts, err := a.cfg.Spec.HTTP.ClientOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid http configuration: %w", err)
	}
	clientOpts = append(clientOpts, results_api.WithLogger(a.log))

	if a.cfg.IsProxy() {
		a.log.Infof(ctx, "Using the console proxy at %s", a.cfg.Spec.Proxy.URL)
		clientOpts = append(clientOpts, results_api.WithBaseURL(a.cfg.Spec.Proxy.URL))
		return results.NewProxyTransport(results_api.NewClient(clientOpts...)), nil
	}

	k8sClient, err := a.newK8sClient(ctx)
	if err != nil {
		return nil, err
	}

	resolver, err := newResolver(a.cfg.Spec.Endpoint, k8sClient, a.log)
	if err != nil {
		return nil, err
	}
	a.resolver = endpoint.NewCachedResolver(resolver)

	if a.cfg.Spec.HTTP.BearerTokenFile == "" && k8sClient != nil {
		token, err := k8sClient.BearerToken()
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, results_api.WithBearerToken(token))
	}

	a.direct = results.NewDirectTransport(results_api.NewClient(clientOpts...), a.resolver)
	return a.direct, nil
}

// newK8sClient creates the cluster client. Static discovery only needs it for
// credentials, so a failure there is logged and the client skipped.
func (a *app) newK8sClient(ctx context.Context) (*k8s_client.Client, error) {
	k8sClient, err := k8s_client.NewClient(ctx, k8s_client.ClientConfig{
		KubeConfigPath: a.cfg.Spec.Kubernetes.KubeConfig,
		QPS:            a.cfg.Spec.Kubernetes.QPS,
		Burst:          a.cfg.Spec.Kubernetes.Burst,
	}, a.log)
	if err == nil {
		return k8sClient, nil
	}
	if a.cfg.Spec.Endpoint.Discover == config_loader.DiscoverStatic {
		a.log.Warnf(logger.WithErrorField(ctx, err), "No Kubernetes credentials, calling %s without a bearer token", a.cfg.Spec.Endpoint.Host)
		return nil, nil
	}
	return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
}

// newResolver picks the endpoint resolver for the configured discovery mode
func newResolver(cfg config_loader.EndpointConfig, k8sClient k8s_client.K8sClient, log logger.Logger) (endpoint.Resolver, error) {
	switch cfg.Discover {
	case config_loader.DiscoverStatic:
		return endpoint.StaticResolver{Host: cfg.Host}, nil
	case config_loader.DiscoverRoute:
		return endpoint.NewRouteResolver(k8sClient, cfg.RouteNamespace, log), nil
	case config_loader.DiscoverTektonResult, "":
		return endpoint.NewTektonResultResolver(k8sClient, log), nil
	default:
		return nil, fmt.Errorf("unknown endpoint discovery %q", cfg.Discover)
	}
}
