package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/openshift-pipelines/tekton-results-reader/internal/proxy"
	"github.com/openshift-pipelines/tekton-results-reader/internal/results"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/health"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/version"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the results proxy backend",
		Long: `Run the results proxy backend. The server:
- resolves the Tekton Results API from the cluster (or the configured host)
- serves the records and logs proxy endpoints the console transport posts to
- exposes /healthz and /readyz, and Prometheus metrics on /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// runServe contains the main application logic for the serve command
func runServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := results.NewMetrics(prometheus.DefaultRegisterer)
	a, err := setup(ctx, false, results.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer a.shutdown()
	log := a.log

	log.Infof(ctx, "Starting Tekton Results Reader version=%s commit=%s built=%s", version.Version, version.Commit, version.BuildDate)

	if a.direct == nil {
		err := errors.New("serve needs spec.transport \"direct\": the proxy backend cannot itself go through a proxy")
		log.Errorf(logger.WithErrorField(ctx, err), "Invalid configuration for serve")
		return err
	}

	healthServer := health.NewServer(log, a.cfg.Spec.Server.HealthPort, a.cfg.ComponentName())
	if err := healthServer.Start(ctx); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to start health server")
		return fmt.Errorf("failed to start health server: %w", err)
	}
	healthServer.SetConfigLoaded()
	defer shutdownServer(log, "health server", healthServer.Shutdown)

	metricsServer := health.NewMetricsServer(log, a.cfg.Spec.Server.MetricsPort, health.MetricsConfig{
		Component: a.cfg.ComponentName(),
		Version:   version.Version,
		Commit:    version.Commit,
	})
	if err := metricsServer.Start(ctx); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to start metrics server")
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	defer shutdownServer(log, "metrics server", metricsServer.Shutdown)

	// Readiness follows endpoint resolution. The resolver memoises success,
	// so after the first hit the probe is free.
	go healthServer.Watch(ctx, health.CheckEndpoint, EndpointProbeInterval, func(ctx context.Context) error {
		_, err := a.resolver.Resolve(ctx)
		return err
	})

	proxyServer := proxy.NewServer(log, a.cfg.Spec.Server.ProxyPort, a.direct)
	if err := proxyServer.Start(ctx); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Failed to start results proxy")
		return fmt.Errorf("failed to start results proxy: %w", err)
	}
	defer shutdownServer(log, "results proxy", proxyServer.Shutdown)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof(ctx, "Received signal %s, initiating graceful shutdown...", sig)
		// /readyz must fail before the listeners close
		healthServer.SetShuttingDown(true)
		cancel()

		sig = <-sigCh
		log.Infof(ctx, "Received second signal %s, forcing immediate exit", sig)
		os.Exit(1)
	}()

	log.Info(ctx, "Results reader started, serving proxy requests")
	<-ctx.Done()
	log.Info(ctx, "Context cancelled, shutting down...")
	return nil
}

func shutdownServer(log logger.Logger, name string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), ServerShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Warnf(errCtx, "Failed to shutdown %s", name)
	}
}
