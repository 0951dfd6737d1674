package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
)

// CheckStatus represents the status of a single health check.
type CheckStatus string

const (
	// CheckOK indicates the check passed.
	CheckOK CheckStatus = "ok"
	// CheckError indicates the check failed.
	CheckError CheckStatus = "error"
)

// Built-in check names
const (
	CheckConfig   = "config"
	CheckEndpoint = "endpoint"
)

// HealthResponse represents the JSON response for /healthz endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ReadyResponse represents the JSON response for /readyz endpoint.
type ReadyResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Checks  map[string]CheckStatus `json:"checks,omitempty"`
}

// Server provides HTTP health check endpoints.
type Server struct {
	server    *http.Server
	handler   http.Handler
	log       logger.Logger
	port      string
	component string

	// shuttingDown makes /readyz answer 503 regardless of the checks.
	shuttingDown atomic.Bool

	mu     sync.RWMutex
	checks map[string]CheckStatus
}

// NewServer creates a new health check server. Readiness needs the "config"
// and "endpoint" checks to pass: the configuration was loaded and the
// results API host (or the proxy) is known.
func NewServer(log logger.Logger, port string, component string) *Server {
	s := &Server{
		log:       log,
		port:      port,
		component: component,
		checks: map[string]CheckStatus{
			CheckConfig:   CheckError,
			CheckEndpoint: CheckError,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/readyz", s.readyzHandler)
	s.handler = mux

	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler returns the probe mux.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the health server in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.log.Infof(ctx, "Starting health server on port %s for %s", s.port, s.component)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCtx := logger.WithErrorField(ctx, err)
			s.log.Errorf(errCtx, "Health server error")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down health server...")
	return s.server.Shutdown(ctx)
}

// SetCheck sets the status of a specific health check.
func (s *Server) SetCheck(name string, status CheckStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = status
}

// SetEndpointReady sets the endpoint check status.
func (s *Server) SetEndpointReady(ready bool) {
	if ready {
		s.SetCheck(CheckEndpoint, CheckOK)
	} else {
		s.SetCheck(CheckEndpoint, CheckError)
	}
}

// Watch runs probe immediately and then every interval until ctx is done,
// recording the outcome under the check name. It blocks; run it in a goroutine.
func (s *Server) Watch(ctx context.Context, name string, interval time.Duration, probe func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := CheckStatus("")
	for {
		status := CheckOK
		if err := probe(ctx); err != nil {
			status = CheckError
			if last != CheckError {
				s.log.Warnf(logger.WithErrorField(ctx, err), "Health check %q failing", name)
			}
		} else if last == CheckError {
			s.log.Infof(ctx, "Health check %q recovered", name)
		}
		s.SetCheck(name, status)
		last = status

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SetConfigLoaded marks the config check as ok.
func (s *Server) SetConfigLoaded() {
	s.SetCheck(CheckConfig, CheckOK)
}

// SetShuttingDown marks the server as shutting down. Call it as soon as
// SIGTERM arrives so /readyz fails before listeners close.
func (s *Server) SetShuttingDown(shuttingDown bool) {
	s.shuttingDown.Store(shuttingDown)
}

// IsShuttingDown returns true if the server is in shutdown mode.
func (s *Server) IsShuttingDown() bool {
	return s.shuttingDown.Load()
}

// IsReady returns true if all checks are passing and server is not shutting down.
func (s *Server) IsReady() bool {
	if s.shuttingDown.Load() {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, status := range s.checks {
		if status != CheckOK {
			return false
		}
	}
	return true
}

// healthzHandler handles liveness probe requests.
// Returns 200 OK if the process is alive.
func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// readyzHandler handles readiness probe requests.
// Returns 200 OK with detailed checks if all checks pass,
// 503 Service Unavailable if shutting down or any check fails.
func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(ReadyResponse{
			Status:  "error",
			Message: "server is shutting down",
		})
		return
	}

	s.mu.RLock()
	checks := make(map[string]CheckStatus, len(s.checks))
	allOK := true
	for name, status := range s.checks {
		checks[name] = status
		if status != CheckOK {
			allOK = false
		}
	}
	s.mu.RUnlock()

	if allOK {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(ReadyResponse{
			Status: "ok",
			Checks: checks,
		})
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(ReadyResponse{
		Status:  "error",
		Message: "not ready",
		Checks:  checks,
	})
}
