package results

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openshift-pipelines/tekton-results-reader/internal/endpoint"
	"github.com/openshift-pipelines/tekton-results-reader/internal/results_api"
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
)

// DirectTransport talks to the results API itself: it resolves the host,
// renders the URL and issues a GET.
type DirectTransport struct {
	client   results_api.Client
	resolver endpoint.Resolver
}

var _ Transport = (*DirectTransport)(nil)

// NewDirectTransport creates a transport over client. The resolver is
// consulted on every call, so it should memoise (endpoint.CachedResolver).
func NewDirectTransport(client results_api.Client, resolver endpoint.Resolver) *DirectTransport {
	return &DirectTransport{client: client, resolver: resolver}
}

// Fetch implements Transport
func (t *DirectTransport) Fetch(ctx context.Context, q Query) ([]byte, error) {
	host, err := t.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return t.get(ctx, q.URL(host))
}

// FetchLog implements Transport
func (t *DirectTransport) FetchLog(ctx context.Context, logPath string) ([]byte, error) {
	host, err := t.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return t.get(ctx, LogURL(host, logPath))
}

func (t *DirectTransport) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := t.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, apperrors.NewAPIError(http.MethodGet, url, resp.StatusCode, resp.Status, resp.Body,
			resp.Attempts, resp.Duration, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	return resp.Body, nil
}
