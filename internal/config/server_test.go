package config

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SiteGuard/internal/entity"
	"SiteGuard/pkg/detector"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idleInference struct {
	disconnected bool
}

func (idleInference) Predict(context.Context, detector.Frame) ([]entity.Prediction, error) {
	return nil, nil
}
func (i idleInference) IsConnected() bool { return !i.disconnected }
func (idleInference) Reconnect() error    { return nil }
func (idleInference) Close()              {}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWith(t, idleInference{})
}

func newTestServerWith(t *testing.T, inference idleInference) *Server {
	t.Helper()
	logger := testLogger()

	server, err := NewServer(
		WithFiber(NewFiber(logger)),
		WithLogger(logger),
		WithValidator(NewValidator()),
		WithMiddleware(),
		WithUtils(),
		WithMetrics(prometheus.NewRegistry()),
		WithDetector(inference),
		WithResultStore(),
	)
	require.NoError(t, err)

	server.RegisterHandler()
	server.mount()
	return server
}

func TestNewServer_RequiresCoreOptions(t *testing.T) {
	_, err := NewServer(WithLogger(testLogger()))
	assert.Error(t, err)
}

func TestWithDetector_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "threshold above one", env: map[string]string{"DETECTION_THRESHOLD": "1.5"}},
		{name: "unknown backend", env: map[string]string{"DETECTOR_BACKEND": "tensorrt"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			logger := testLogger()
			_, err := NewServer(
				WithFiber(NewFiber(logger)),
				WithLogger(logger),
				WithValidator(NewValidator()),
				WithDetector(idleInference{}),
			)
			assert.Error(t, err)
		})
	}
}

func TestServer_HealthCheck(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.engine.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Server is Healthy!", body["message"])
	assert.Equal(t, 0.0, body["stored_analyses"])
	assert.Equal(t, true, body["inference_connected"])
}

func TestServer_HealthCheckReportsDisconnectedInference(t *testing.T) {
	server := newTestServerWith(t, idleInference{disconnected: true})

	resp, err := server.engine.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["inference_connected"])
}

func TestDetectorBackend(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{env: "", want: BackendRemote},
		{env: "remote", want: BackendRemote},
		{env: " ONNX ", want: BackendONNX},
		{env: "tensorrt", want: "tensorrt"},
	}

	for _, tc := range tests {
		t.Setenv("DETECTOR_BACKEND", tc.env)
		assert.Equal(t, tc.want, DetectorBackend(), "DETECTOR_BACKEND=%q", tc.env)
	}
}

func TestWithDetector_RemoteRequiresInferenceClient(t *testing.T) {
	t.Setenv("DETECTOR_BACKEND", BackendRemote)
	logger := testLogger()

	_, err := NewServer(
		WithFiber(NewFiber(logger)),
		WithLogger(logger),
		WithValidator(NewValidator()),
		WithDetector(nil),
	)
	assert.Error(t, err)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.engine.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "siteguard_stored_analyses"))
}

func TestServer_UnknownRouteIsJSON(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.engine.Test(httptest.NewRequest(http.MethodGet, "/api/v1/nothing-here", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestServer_AnalysisRoutesMounted(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.engine.Test(httptest.NewRequest(http.MethodGet, "/api/v1/analyses/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
