package health

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
)

// MetricsServer provides HTTP metrics endpoint for Prometheus.
type MetricsServer struct {
	server    *http.Server
	log       logger.Logger
	port      string
	upGauge   prometheus.Gauge
	buildInfo *prometheus.GaugeVec
}

// MetricsConfig holds configuration for metrics registration.
type MetricsConfig struct {
	Component string
	Version   string
	Commit    string
	// Registry receives the server's own metrics and is what /metrics
	// serves. Nil means the prometheus default registry, which is where
	// results.NewMetrics(nil) registers too.
	Registry *prometheus.Registry
}

// NewMetricsServer creates a new metrics server exposing build_info and up
// next to every collector already in the registry.
func NewMetricsServer(log logger.Logger, port string, cfg MetricsConfig) *MetricsServer {
	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tekton_results_reader_build_info",
			Help: "Build information for the results reader",
		},
		[]string{"component", "version", "commit"},
	)

	upGauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tekton_results_reader_up",
			Help: "Whether the results reader is up and running",
			ConstLabels: prometheus.Labels{
				"component": cfg.Component,
				"version":   cfg.Version,
			},
		},
	)

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}
	registerer.MustRegister(buildInfo, upGauge)

	// build_info is an info metric
	buildInfo.WithLabelValues(cfg.Component, cfg.Version, cfg.Commit).Set(1)
	upGauge.Set(1)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &MetricsServer{
		log:       log,
		port:      port,
		upGauge:   upGauge,
		buildInfo: buildInfo,
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the /metrics mux.
func (s *MetricsServer) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the metrics server in a goroutine.
func (s *MetricsServer) Start(ctx context.Context) error {
	s.log.Infof(ctx, "Starting metrics server on port %s", s.port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCtx := logger.WithErrorField(ctx, err)
			s.log.Errorf(errCtx, "Metrics server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down metrics server...")
	s.upGauge.Set(0)
	return s.server.Shutdown(ctx)
}
