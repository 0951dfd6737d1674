package results

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/openshift-pipelines/tekton-results-reader/internal/filter"
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
)

func notFoundErr() error {
	return apperrors.NewAPIError(http.MethodGet, "https://results/x", http.StatusNotFound, "404 Not Found", nil, 1, 0, errors.New("unexpected status code: 404"))
}

func TestGetFilteredRecordDecodesPage(t *testing.T) {
	transport := &fakeTransport{body: recordsBody(2, "next-page")}
	f := NewFetcher(transport)

	result, err := f.GetPipelineRuns(context.Background(), "demo", nil, "", "")
	require.NoError(t, err)

	assert.False(t, result.Loading)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "run-0", result.Items[0].GetName())
	assert.Equal(t, "next-page", result.List.NextPageToken)
	require.Len(t, transport.queries, 1)
	assert.Equal(t, `data_type == "tekton.dev/v1.PipelineRun"`, transport.queries[0].Params.Get("filter"))
}

func TestGetTaskRunsUsesTaskRunType(t *testing.T) {
	transport := &fakeTransport{body: recordsBody(0, "")}
	_, err := NewFetcher(transport).GetTaskRuns(context.Background(), "", nil, "tok", "")
	require.NoError(t, err)
	require.Len(t, transport.queries, 1)
	assert.Equal(t, "-", transport.queries[0].SearchNamespace)
	assert.Equal(t, "tok", transport.queries[0].Params.Get("page_token"))
	assert.Equal(t, `data_type == "tekton.dev/v1.TaskRun"`, transport.queries[0].Params.Get("filter"))
}

func TestGetFilteredRecordLimitTruncates(t *testing.T) {
	transport := &fakeTransport{body: recordsBody(10, "more")}

	result, err := NewFetcher(transport).GetFilteredRecord(context.Background(), "demo", DataTypePipelineRun, "", &Options{Limit: Int(3)}, "", "")
	require.NoError(t, err)

	assert.Len(t, result.Items, 3)
	assert.Len(t, result.List.Records, 3)
	assert.Equal(t, "", result.List.NextPageToken)
	assert.Equal(t, "5", transport.queries[0].Params.Get("page_size"))
}

func TestGetFilteredRecordNotFoundIsEmptyPage(t *testing.T) {
	transport := &fakeTransport{err: notFoundErr()}

	result, err := NewFetcher(transport).GetFilteredRecord(context.Background(), "demo", DataTypePipelineRun, "", nil, "", "")
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.List.Records)
	assert.NotNil(t, result.List.Records)
	assert.Equal(t, "", result.List.NextPageToken)
	assert.False(t, result.Loading)
}

func TestGetFilteredRecordPropagatesOtherErrors(t *testing.T) {
	upstream := apperrors.NewAPIError(http.MethodGet, "https://results/x", http.StatusForbidden, "403 Forbidden", nil, 1, 0, errors.New("denied"))
	transport := &fakeTransport{err: upstream}

	_, err := NewFetcher(transport).GetFilteredRecord(context.Background(), "demo", DataTypePipelineRun, "", nil, "", "")
	require.Error(t, err)
	apiErr, ok := apperrors.IsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsForbidden())
}

func TestGetFilteredRecordMalformedBody(t *testing.T) {
	transport := &fakeTransport{body: []byte("<html>gateway</html>")}

	_, err := NewFetcher(transport).GetFilteredRecord(context.Background(), "demo", DataTypePipelineRun, "", nil, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsServiceError(err, apperrors.ErrorMalformedResponse))
}

func TestGetFilteredRecordUnsupportedOperator(t *testing.T) {
	transport := &fakeTransport{body: recordsBody(1, "")}
	opts := &Options{Selector: &filter.Selector{MatchExpressions: []filter.Expression{{Key: "a", Operator: "Bogus"}}}}

	_, err := NewFetcher(transport).GetFilteredRecord(context.Background(), "demo", DataTypePipelineRun, "", opts, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsServiceError(err, apperrors.ErrorUnsupportedOperator))
	assert.Equal(t, 0, transport.Calls())
}

func TestGetFilteredRecordFilterValidation(t *testing.T) {
	transport := &fakeTransport{body: recordsBody(1, "")}
	f := NewFetcher(transport, WithFilterValidation(true))

	_, err := f.GetFilteredRecord(context.Background(), "demo", DataTypePipelineRun, `data.metadata.name ==`, nil, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsServiceError(err, apperrors.ErrorValidation))
	assert.Equal(t, 0, transport.Calls())

	_, err = f.GetFilteredRecord(context.Background(), "demo", DataTypePipelineRun, `data.metadata.name == "ok"`, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.Calls())
}

func TestGetFilteredRecordCacheInFlightPlaceholder(t *testing.T) {
	transport := &fakeTransport{
		body:    recordsBody(2, ""),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := NewFetcher(transport)
	ctx := context.Background()

	type outcome struct {
		result Result
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		r, err := f.GetPipelineRuns(ctx, "demo", nil, "", "k")
		first <- outcome{r, err}
	}()

	select {
	case <-transport.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first fetch never started")
	}

	second, err := f.GetPipelineRuns(ctx, "demo", nil, "", "k")
	require.NoError(t, err)
	assert.True(t, second.Loading)
	assert.Empty(t, second.Items)
	assert.Empty(t, second.List.Records)
	assert.Equal(t, "", second.List.NextPageToken)
	assert.Equal(t, 1, transport.Calls(), "placeholder must not start a second fetch")

	close(transport.release)
	got := <-first
	require.NoError(t, got.err)
	assert.False(t, got.result.Loading)
	assert.Len(t, got.result.Items, 2)
}

func TestGetFilteredRecordCacheHitAndReset(t *testing.T) {
	transport := &fakeTransport{body: recordsBody(2, "")}
	f := NewFetcher(transport)
	ctx := context.Background()

	first, err := f.GetPipelineRuns(ctx, "demo", nil, "", "k")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.Calls())

	cached, err := f.GetPipelineRuns(ctx, "demo", nil, "", "k")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.Calls(), "cached entry must not hit the network")
	assert.Equal(t, first.List, cached.List)
	require.Len(t, cached.Items, 2)
	assert.Equal(t, first.Items[0].Object, cached.Items[0].Object)

	f.ClearCache()
	_, err = f.GetPipelineRuns(ctx, "demo", nil, "", "k")
	require.NoError(t, err)
	assert.Equal(t, 2, transport.Calls())
}

func TestGetFilteredRecordWithoutCacheKeyAlwaysFetches(t *testing.T) {
	transport := &fakeTransport{body: recordsBody(1, "")}
	f := NewFetcher(transport)

	for i := 0; i < 3; i++ {
		_, err := f.GetPipelineRuns(context.Background(), "demo", nil, "", "")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, transport.Calls())
	assert.Equal(t, 0, f.Cache().Len())
}

func TestGetFilteredRecordFailedFetchIsNotCached(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection refused")}
	f := NewFetcher(transport)
	ctx := context.Background()

	_, err := f.GetPipelineRuns(ctx, "demo", nil, "", "k")
	require.Error(t, err)
	assert.False(t, f.Cache().InFlight("k"))
	assert.Equal(t, 0, f.Cache().Len())

	transport.mu.Lock()
	transport.err = nil
	transport.body = recordsBody(1, "")
	transport.mu.Unlock()

	result, err := f.GetPipelineRuns(ctx, "demo", nil, "", "k")
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, f.Cache().Len())
}

func TestGetFilteredRecordNotFoundIsCached(t *testing.T) {
	transport := &fakeTransport{err: notFoundErr()}
	f := NewFetcher(transport)

	for i := 0; i < 2; i++ {
		result, err := f.GetPipelineRuns(context.Background(), "demo", nil, "", "k")
		require.NoError(t, err)
		assert.Empty(t, result.Items)
	}
	assert.Equal(t, 1, transport.Calls())
}

func TestGetFilteredRecordSharedCache(t *testing.T) {
	cache := NewCache()
	a := NewFetcher(&fakeTransport{body: recordsBody(1, "")}, WithCache(cache))
	bTransport := &fakeTransport{body: recordsBody(3, "")}
	b := NewFetcher(bTransport, WithCache(cache))

	_, err := a.GetPipelineRuns(context.Background(), "demo", nil, "", "k")
	require.NoError(t, err)

	result, err := b.GetPipelineRuns(context.Background(), "demo", nil, "", "k")
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 0, bTransport.Calls())
}

func TestGetTaskRunLog(t *testing.T) {
	t.Run("empty path fails before any request", func(t *testing.T) {
		transport := &fakeTransport{}
		_, err := NewFetcher(transport).GetTaskRunLog(context.Background(), "")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Equal(t, 0, transport.Calls())
	})

	t.Run("text body", func(t *testing.T) {
		transport := &fakeTransport{logBody: []byte("step-build: compiling\n")}
		l, err := NewFetcher(transport).GetTaskRunLog(context.Background(), "demo/results/abc/records/def")
		require.NoError(t, err)
		assert.False(t, l.IsJSON())
		assert.Equal(t, "step-build: compiling\n", l.Text)
		assert.Equal(t, []string{"demo/results/abc/logs/def"}, transport.logPaths)
	})

	t.Run("json body", func(t *testing.T) {
		transport := &fakeTransport{logBody: []byte(`{"result":{"name":"log"}}`)}
		l, err := NewFetcher(transport).GetTaskRunLog(context.Background(), "demo/results/abc/records/def")
		require.NoError(t, err)
		assert.True(t, l.IsJSON())
		assert.JSONEq(t, `{"result":{"name":"log"}}`, string(l.JSON))

		out, err := l.MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, `{"result":{"name":"log"}}`, string(out))
	})

	t.Run("upstream errors propagate", func(t *testing.T) {
		transport := &fakeTransport{logErr: notFoundErr()}
		_, err := NewFetcher(transport).GetTaskRunLog(context.Background(), "demo/results/abc/records/def")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestFetcherMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	transport := &fakeTransport{body: recordsBody(1, "")}
	f := NewFetcher(transport, WithMetrics(m))
	ctx := context.Background()

	_, err := f.GetPipelineRuns(ctx, "demo", nil, "", "k")
	require.NoError(t, err)
	_, err = f.GetPipelineRuns(ctx, "demo", nil, "", "k")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues(CacheMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("records", string(DataTypePipelineRun), OutcomeSuccess)))
}

func TestFetcherSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	transport := &fakeTransport{err: errors.New("boom")}
	f := NewFetcher(transport, WithTracerProvider(tp), WithLogger(logger.NewTestLogger()))

	_, err := f.GetPipelineRuns(context.Background(), "demo", nil, "", "")
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "results.GetFilteredRecord", spans[0].Name())
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}
