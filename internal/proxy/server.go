// Package proxy serves the console-side endpoints the proxied transport talks
// to. Each request is replayed against the results API through a direct
// transport and the upstream answer is wrapped in a {statusCode, body}
// envelope, so the caller never needs cluster credentials or TLS setup.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/openshift-pipelines/tekton-results-reader/internal/results"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/constants"
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
)

// ErrorResponse is written when the request itself is rejected, before any
// upstream call is made.
type ErrorResponse struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Server exposes the records and logs proxy endpoints.
type Server struct {
	server    *http.Server
	router    chi.Router
	transport results.Transport
	log       logger.Logger
	port      string
}

// NewServer creates a proxy server that forwards through transport, which is
// normally a *results.DirectTransport.
func NewServer(log logger.Logger, port string, transport results.Transport) *Server {
	s := &Server{
		transport: transport,
		log:       log,
		port:      port,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestContext)
	r.Post(constants.ProxyRecordsPath, s.recordsHandler)
	r.Post(constants.ProxyLogsPath, s.logsHandler)
	s.router = r

	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the proxy server in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.log.Infof(ctx, "Starting results proxy on port %s", s.port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCtx := logger.WithErrorField(ctx, err)
			s.log.Errorf(errCtx, "Results proxy error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the proxy server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down results proxy...")
	return s.server.Shutdown(ctx)
}

// requestContext picks up the caller's trace context and tags the request
// with its chi request id.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = logger.WithLogField(ctx, "request_id", id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) recordsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req results.ProxyRecordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(ctx, w, apperrors.BadRequest("invalid records request: %v", err))
		return
	}
	if strings.TrimSpace(req.SearchNamespace) == "" {
		s.writeError(ctx, w, apperrors.Validation("searchNamespace is required"))
		return
	}
	params, err := url.ParseQuery(req.SearchParams)
	if err != nil {
		s.writeError(ctx, w, apperrors.BadRequest("invalid searchParams: %v", err))
		return
	}

	ctx = logger.WithNamespace(ctx, req.SearchNamespace)
	body, err := s.transport.Fetch(ctx, results.Query{SearchNamespace: req.SearchNamespace, Params: params})
	s.writeEnvelope(ctx, w, body, err)
}

func (s *Server) logsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req results.ProxyLogsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(ctx, w, apperrors.BadRequest("invalid logs request: %v", err))
		return
	}
	if strings.TrimSpace(req.TaskRunPath) == "" {
		s.writeError(ctx, w, apperrors.Validation("taskRunPath is required"))
		return
	}

	ctx = logger.WithRecord(ctx, req.TaskRunPath)
	body, err := s.transport.FetchLog(ctx, req.TaskRunPath)
	s.writeEnvelope(ctx, w, body, err)
}

// writeEnvelope answers 200 with the upstream status and body. Upstream HTTP
// failures are still envelopes; only failures with no upstream status
// (discovery, network) become an HTTP error.
func (s *Server) writeEnvelope(ctx context.Context, w http.ResponseWriter, body []byte, err error) {
	envelope := results.ProxyResponse{StatusCode: http.StatusOK, Body: string(body)}
	if err != nil {
		apiErr, ok := apperrors.IsAPIError(err)
		if !ok || apiErr.StatusCode == 0 {
			s.writeError(ctx, w, err)
			return
		}
		s.log.Debugf(ctx, "Upstream answered %d", apiErr.StatusCode)
		envelope = results.ProxyResponse{StatusCode: apiErr.StatusCode, Body: apiErr.ResponseBodyString()}
	}
	writeJSON(w, http.StatusOK, envelope)
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	resp := ErrorResponse{Code: *apperrors.CodeStr(apperrors.ErrorResultsAPIError), Reason: err.Error()}

	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		status = svcErr.HttpCode
		resp = ErrorResponse{Code: *apperrors.CodeStr(svcErr.Code), Reason: svcErr.Reason}
	}

	errCtx := logger.WithErrorField(ctx, err)
	if status >= http.StatusInternalServerError {
		s.log.Errorf(errCtx, "Proxy request failed with %d", status)
	} else {
		s.log.Warnf(errCtx, "Proxy request rejected with %d", status)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
