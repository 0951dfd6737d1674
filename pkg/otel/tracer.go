// Package otel sets up the process-wide OpenTelemetry TracerProvider. No
// exporter is configured: spans exist so trace and span ids reach the logs
// and the outgoing traceparent header.
package otel

import (
	"context"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
)

// EnvTraceSampleRatio is the standard OTel sampler argument variable
const EnvTraceSampleRatio = "OTEL_TRACES_SAMPLER_ARG"

// DefaultTraceSampleRatio samples 10% of root spans
const DefaultTraceSampleRatio = 0.1

// GetTraceSampleRatio reads OTEL_TRACES_SAMPLER_ARG. Values outside [0, 1]
// or unparseable ones fall back to the default with a warning.
func GetTraceSampleRatio(log logger.Logger, ctx context.Context) float64 {
	raw := os.Getenv(EnvTraceSampleRatio)
	if raw == "" {
		return DefaultTraceSampleRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		log.Warnf(ctx, "Invalid %s=%q, using default %.2f", EnvTraceSampleRatio, raw, DefaultTraceSampleRatio)
		return DefaultTraceSampleRatio
	}
	return ratio
}

// InitTracer installs a TracerProvider and the W3C trace-context propagator
// as globals and returns the provider so the caller can shut it down.
func InitTracer(serviceName, serviceVersion string, sampleRatio float64) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}
