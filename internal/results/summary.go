package results

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
)

// GetResultsSummary queries the records summary endpoint. opts.Summary
// selects the aggregations and opts.GroupBy the grouping. A 404 yields an
// empty summary. Summaries are never cached.
func (f *Fetcher) GetResultsSummary(ctx context.Context, namespace string, opts *Options, pageToken string) (*Summary, error) {
	q, err := SummaryQuery(namespace, opts, pageToken)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithNamespace(ctx, q.SearchNamespace)
	ctx = logger.WithDataType(ctx, string(opts.DataType))
	ctx, span := f.tracer.Start(ctx, "results.GetResultsSummary", trace.WithAttributes(
		attribute.String("results.namespace", q.SearchNamespace),
		attribute.String("results.summary", opts.Summary),
		attribute.String("results.group_by", opts.GroupBy),
	))
	defer span.End()

	start := time.Now()
	body, err := f.transport.Fetch(ctx, q)
	if err != nil {
		if apperrors.IsNotFound(err) {
			f.metrics.observeRequest("summary", opts.DataType, OutcomeNotFound, time.Since(start))
			return &Summary{Summary: []map[string]interface{}{}}, nil
		}
		f.metrics.observeRequest("summary", opts.DataType, OutcomeError, time.Since(start))
		return nil, failSpan(span, err)
	}

	var summary Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		f.metrics.observeRequest("summary", opts.DataType, OutcomeError, time.Since(start))
		return nil, failSpan(span, apperrors.MalformedResponse(body, "failed to parse summary response as JSON: %v", err))
	}
	if summary.Summary == nil {
		summary.Summary = []map[string]interface{}{}
	}

	f.metrics.observeRequest("summary", opts.DataType, OutcomeSuccess, time.Since(start))
	f.log.Debugf(ctx, "Fetched summary with %d groups", len(summary.Summary))
	return &summary, nil
}
