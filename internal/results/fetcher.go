package results

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openshift-pipelines/tekton-results-reader/internal/filter"
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
)

const tracerName = "github.com/openshift-pipelines/tekton-results-reader/internal/results"

// Fetcher is the read path over a Transport: it builds queries, decodes
// pages and consults the response cache.
type Fetcher struct {
	transport      Transport
	cache          *Cache
	log            logger.Logger
	metrics        *Metrics
	tracer         trace.Tracer
	validateFilter bool
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithCache shares cache between fetchers. By default each Fetcher owns a
// fresh one.
func WithCache(cache *Cache) FetcherOption {
	return func(f *Fetcher) {
		if cache != nil {
			f.cache = cache
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logger.Logger) FetcherOption {
	return func(f *Fetcher) {
		if log != nil {
			f.log = log
		}
	}
}

// WithMetrics records request and cache metrics
func WithMetrics(m *Metrics) FetcherOption {
	return func(f *Fetcher) {
		f.metrics = m
	}
}

// WithTracerProvider sets where spans go; the global provider otherwise.
func WithTracerProvider(tp trace.TracerProvider) FetcherOption {
	return func(f *Fetcher) {
		if tp != nil {
			f.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithFilterValidation type-checks the composed CEL filter before any
// request is sent.
func WithFilterValidation(enabled bool) FetcherOption {
	return func(f *Fetcher) {
		f.validateFilter = enabled
	}
}

// NewFetcher creates a Fetcher over transport
func NewFetcher(transport Transport, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		transport: transport,
		cache:     NewCache(),
		log:       logger.NewDiscardLogger(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Cache returns the response cache
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// ClearCache drops every cached page
func (f *Fetcher) ClearCache() {
	f.cache.Reset()
}

// GetFilteredRecord fetches one page of records of dataType in namespace.
//
// With an empty cacheKey every call goes to the network. With a cacheKey, a
// completed entry is returned without network access; if another call for
// the same key is still underway an empty Result with Loading set is
// returned at once, and the caller is expected to retry. Only the caller
// that marked the key fetches, and only a successful fetch is stored.
func (f *Fetcher) GetFilteredRecord(ctx context.Context, namespace string, dataType DataType, rawFilter string, opts *Options, pageToken, cacheKey string) (Result, error) {
	ctx = logger.WithNamespace(ctx, SearchNamespace(namespace))
	ctx = logger.WithDataType(ctx, string(dataType))
	ctx = logger.WithCacheKey(ctx, cacheKey)

	ctx, span := f.tracer.Start(ctx, "results.GetFilteredRecord", trace.WithAttributes(
		attribute.String("results.namespace", SearchNamespace(namespace)),
		attribute.String("results.data_type", string(dataType)),
		attribute.Bool("results.cached", cacheKey != ""),
	))
	defer span.End()

	if cacheKey == "" {
		return f.fetchRecords(ctx, span, namespace, dataType, rawFilter, opts, pageToken)
	}

	if cached, ok := f.cache.Get(cacheKey); ok {
		f.metrics.observeCache(CacheHit)
		span.SetAttributes(attribute.String("results.cache", CacheHit))
		f.log.Debug(ctx, "Returning cached records")
		return cached, nil
	}

	if !f.cache.MarkInFlight(cacheKey) {
		// Completed between Get and MarkInFlight
		if cached, ok := f.cache.Get(cacheKey); ok {
			f.metrics.observeCache(CacheHit)
			return cached, nil
		}
		f.metrics.observeCache(CachePlaceholder)
		span.SetAttributes(attribute.String("results.cache", CachePlaceholder))
		f.log.Debug(ctx, "Records fetch already in flight, returning placeholder")
		return placeholder(), nil
	}
	f.metrics.observeCache(CacheMiss)

	stored := false
	defer func() {
		if !stored {
			f.cache.Abort(cacheKey)
		}
	}()

	result, err := f.fetchRecords(ctx, span, namespace, dataType, rawFilter, opts, pageToken)
	if err != nil {
		return Result{}, err
	}
	f.cache.Complete(cacheKey, result)
	stored = true
	return result, nil
}

func (f *Fetcher) fetchRecords(ctx context.Context, span trace.Span, namespace string, dataType DataType, rawFilter string, opts *Options, pageToken string) (Result, error) {
	q, err := RecordsQuery(namespace, dataType, rawFilter, opts, pageToken)
	if err != nil {
		return Result{}, failSpan(span, err)
	}
	if f.validateFilter {
		if err := filter.Validate(q.Params.Get("filter")); err != nil {
			return Result{}, failSpan(span, err)
		}
	}

	start := time.Now()
	body, err := f.transport.Fetch(ctx, q)
	if err != nil {
		if apperrors.IsNotFound(err) {
			f.metrics.observeRequest("records", dataType, OutcomeNotFound, time.Since(start))
			f.log.Debug(ctx, "Results API returned 404, treating as an empty page")
			return emptyPage(), nil
		}
		f.metrics.observeRequest("records", dataType, OutcomeError, time.Since(start))
		return Result{}, failSpan(span, err)
	}

	var list RecordsList
	if err := json.Unmarshal(body, &list); err != nil {
		f.metrics.observeRequest("records", dataType, OutcomeError, time.Since(start))
		return Result{}, failSpan(span, apperrors.MalformedResponse(body, "failed to parse records response as JSON: %v", err))
	}
	if list.Records == nil {
		list.Records = []Record{}
	}

	if limit, ok := opts.limit(); ok {
		if len(list.Records) > limit {
			list.Records = list.Records[:limit]
		}
		list.NextPageToken = ""
	}

	items, err := DecodeRecords(list.Records)
	if err != nil {
		f.metrics.observeRequest("records", dataType, OutcomeError, time.Since(start))
		return Result{}, failSpan(span, err)
	}

	f.metrics.observeRequest("records", dataType, OutcomeSuccess, time.Since(start))
	span.SetAttributes(attribute.Int("results.records", len(items)))
	f.log.Debugf(ctx, "Fetched %d records (next page: %t)", len(items), list.NextPageToken != "")
	return Result{Items: items, List: list}, nil
}

// GetPipelineRuns fetches PipelineRun records. Supply cacheKey only when the
// runs are finished and the page can never change.
func (f *Fetcher) GetPipelineRuns(ctx context.Context, namespace string, opts *Options, pageToken, cacheKey string) (Result, error) {
	return f.GetFilteredRecord(ctx, namespace, DataTypePipelineRun, "", opts, pageToken, cacheKey)
}

// GetTaskRuns fetches TaskRun records. Supply cacheKey only when the runs
// are finished and the page can never change.
func (f *Fetcher) GetTaskRuns(ctx context.Context, namespace string, opts *Options, pageToken, cacheKey string) (Result, error) {
	return f.GetFilteredRecord(ctx, namespace, DataTypeTaskRun, "", opts, pageToken, cacheKey)
}

// GetTaskRunLog fetches the log of the record at recordPath. An empty path is
// NotFound without any request being made.
func (f *Fetcher) GetTaskRunLog(ctx context.Context, recordPath string) (Log, error) {
	if strings.TrimSpace(recordPath) == "" {
		return Log{}, apperrors.NotFound("task run log path is empty")
	}

	logPath := LogPath(recordPath)
	ctx = logger.WithRecord(ctx, logPath)
	ctx, span := f.tracer.Start(ctx, "results.GetTaskRunLog", trace.WithAttributes(
		attribute.String("results.log_path", logPath),
	))
	defer span.End()

	start := time.Now()
	body, err := f.transport.FetchLog(ctx, logPath)
	if err != nil {
		outcome := OutcomeError
		if apperrors.IsNotFound(err) {
			outcome = OutcomeNotFound
		}
		f.metrics.observeRequest("logs", DataTypeTaskRun, outcome, time.Since(start))
		return Log{}, failSpan(span, err)
	}
	f.metrics.observeRequest("logs", DataTypeTaskRun, OutcomeSuccess, time.Since(start))

	return parseLog(body), nil
}

func parseLog(body []byte) Log {
	l := Log{Text: string(body)}
	if json.Valid(body) {
		l.JSON = json.RawMessage(body)
	}
	return l
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
