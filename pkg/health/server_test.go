package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
)

// mockLogger implements logger.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string)                          {}
func (m *mockLogger) Debugf(ctx context.Context, format string, args ...interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string)                           {}
func (m *mockLogger) Infof(ctx context.Context, format string, args ...interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string)                           {}
func (m *mockLogger) Warnf(ctx context.Context, format string, args ...interface{})  {}
func (m *mockLogger) Error(ctx context.Context, msg string)                          {}
func (m *mockLogger) Errorf(ctx context.Context, format string, args ...interface{}) {}
func (m *mockLogger) Fatal(ctx context.Context, msg string)                          {}
func (m *mockLogger) With(key string, value interface{}) logger.Logger               { return m }
func (m *mockLogger) WithFields(fields map[string]interface{}) logger.Logger         { return m }
func (m *mockLogger) WithError(err error) logger.Logger                              { return m }
func (m *mockLogger) Without(key string) logger.Logger                               { return m }

func readyz(t *testing.T, server *Server) (int, ReadyResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	var response ReadyResponse
	require.NoError(t, json.NewDecoder(w.Result().Body).Decode(&response))
	return w.Code, response
}

func TestHealthzHandler(t *testing.T) {
	server := NewServer(&mockLogger{}, "8080", "test-reader")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	server.healthzHandler(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var response HealthResponse
	err := json.NewDecoder(resp.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Status)
	assert.Empty(t, response.Message)
}

func TestReadyzHandler_NotReady(t *testing.T) {
	server := NewServer(&mockLogger{}, "8080", "test-reader")

	code, response := readyz(t, server)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, "not ready", response.Message)
	assert.Equal(t, CheckError, response.Checks[CheckConfig])
	assert.Equal(t, CheckError, response.Checks[CheckEndpoint])
}

func TestReadyzHandler_Ready(t *testing.T) {
	server := NewServer(&mockLogger{}, "8080", "test-reader")
	server.SetConfigLoaded()
	server.SetEndpointReady(true)

	code, response := readyz(t, server)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", response.Status)
	assert.Empty(t, response.Message)
	assert.Equal(t, CheckOK, response.Checks[CheckConfig])
	assert.Equal(t, CheckOK, response.Checks[CheckEndpoint])
}

func TestReadyzHandler_PartialReady(t *testing.T) {
	server := NewServer(&mockLogger{}, "8080", "test-reader")
	server.SetConfigLoaded()

	code, response := readyz(t, server)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, CheckOK, response.Checks[CheckConfig])
	assert.Equal(t, CheckError, response.Checks[CheckEndpoint])
}

func TestSetEndpointReady(t *testing.T) {
	server := NewServer(&mockLogger{}, "8080", "test-reader")
	assert.False(t, server.IsReady())

	server.SetConfigLoaded()
	assert.False(t, server.IsReady())

	server.SetEndpointReady(true)
	assert.True(t, server.IsReady())

	server.SetEndpointReady(false)
	assert.False(t, server.IsReady())
}

func TestSetCheck(t *testing.T) {
	server := NewServer(&mockLogger{}, "8080", "test-reader")
	server.SetCheck("kubernetes", CheckOK)
	server.SetConfigLoaded()
	server.SetEndpointReady(true)

	code, response := readyz(t, server)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, CheckOK, response.Checks["kubernetes"])

	server.SetCheck("kubernetes", CheckError)
	code, _ = readyz(t, server)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestShuttingDown(t *testing.T) {
	server := NewServer(&mockLogger{}, "8080", "test-reader")
	server.SetConfigLoaded()
	server.SetEndpointReady(true)
	require.True(t, server.IsReady())

	server.SetShuttingDown(true)
	assert.True(t, server.IsShuttingDown())
	assert.False(t, server.IsReady())

	code, response := readyz(t, server)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "server is shutting down", response.Message)
	assert.Nil(t, response.Checks)
}

func TestWatchRecordsProbeOutcome(t *testing.T) {
	server := NewServer(&mockLogger{}, "8080", "test-reader")
	server.SetConfigLoaded()

	var healthy atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Watch(ctx, CheckEndpoint, 10*time.Millisecond, func(context.Context) error {
			if healthy.Load() {
				return nil
			}
			return errors.New("no route")
		})
	}()

	assert.Never(t, server.IsReady, 50*time.Millisecond, 5*time.Millisecond)
	healthy.Store(true)
	assert.Eventually(t, server.IsReady, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancellation")
	}
}
