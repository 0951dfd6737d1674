package results

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openshift-pipelines/tekton-results-reader/internal/results_api"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/constants"
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
)

// ProxyRecordsRequest is the body posted to the records proxy endpoint.
type ProxyRecordsRequest struct {
	SearchNamespace string `json:"searchNamespace"`
	SearchParams    string `json:"searchParams"`
}

// ProxyLogsRequest is the body posted to the logs proxy endpoint.
type ProxyLogsRequest struct {
	TaskRunPath string `json:"taskRunPath"`
}

// ProxyResponse is the envelope both proxy endpoints answer with. Body is
// the upstream response body, verbatim.
type ProxyResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ProxyTransport delegates to the console backend, which owns discovery,
// auth and TLS. The client's base URL is the console (or proxy) address.
type ProxyTransport struct {
	client results_api.Client
}

var _ Transport = (*ProxyTransport)(nil)

// NewProxyTransport creates a transport posting to the proxy endpoints
// relative to client.BaseURL().
func NewProxyTransport(client results_api.Client) *ProxyTransport {
	return &ProxyTransport{client: client}
}

// Fetch implements Transport. The proxy only serves record listings.
func (t *ProxyTransport) Fetch(ctx context.Context, q Query) ([]byte, error) {
	if q.Summary {
		return nil, apperrors.BadRequest("summary queries are not served by the console proxy, use the direct transport")
	}
	return t.post(ctx, constants.ProxyRecordsPath, ProxyRecordsRequest{
		SearchNamespace: q.SearchNamespace,
		SearchParams:    q.Params.Encode(),
	})
}

// FetchLog implements Transport
func (t *ProxyTransport) FetchLog(ctx context.Context, logPath string) ([]byte, error) {
	return t.post(ctx, constants.ProxyLogsPath, ProxyLogsRequest{TaskRunPath: logPath})
}

func (t *ProxyTransport) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal proxy request: %w", err)
	}

	resp, err := t.client.Post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	url := t.client.BaseURL() + path
	if !resp.IsSuccess() {
		return nil, apperrors.NewAPIError(http.MethodPost, url, resp.StatusCode, resp.Status, resp.Body,
			resp.Attempts, resp.Duration, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	envelope, err := ParseProxyResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	if envelope.StatusCode < 200 || envelope.StatusCode >= 300 {
		return nil, apperrors.NewAPIError(http.MethodPost, url, envelope.StatusCode, http.StatusText(envelope.StatusCode),
			[]byte(envelope.Body), resp.Attempts, resp.Duration, fmt.Errorf("unexpected status code: %d", envelope.StatusCode))
	}
	return []byte(envelope.Body), nil
}

// ParseProxyResponse decodes a proxy envelope. A body that is not an
// envelope, or an envelope without a status code, is a MalformedResponse
// carrying the raw body.
func ParseProxyResponse(raw []byte) (*ProxyResponse, error) {
	var envelope ProxyResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.MalformedResponse(raw, "Unexpected proxy response: %v", err)
	}
	if envelope.StatusCode == 0 {
		return nil, apperrors.MalformedResponse(raw, "Unexpected proxy response: Status code is missing!")
	}
	return &envelope, nil
}
