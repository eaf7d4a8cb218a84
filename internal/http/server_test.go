package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvee/internal/alert"
	"github.com/jmylchreest/tvee/internal/config"
	"github.com/jmylchreest/tvee/internal/http/handlers"
	"github.com/jmylchreest/tvee/internal/http/middleware"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second}, nil, "1.2.3")
	tone := alert.NewTone(config.AlertConfig{ToneFrequency: 880, ToneDuration: 100 * time.Millisecond, SampleRate: 8000})
	s.Mount(handlers.NewHealthHandler("1.2.3"), handlers.NewAlertHandler(tone, nil))
	return s
}

func TestServer_MountsHumaAndRawRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	var body handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "1.2.3", body.Version)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, handlers.ToneURLPath, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
}

func TestServer_OpenAPIDocument(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "tvee API", doc.Info.Title)
	assert.Equal(t, "1.2.3", doc.Info.Version)
	assert.Contains(t, doc.Paths, "/api/v1/health")
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	assert.NoError(t, newTestServer(t).Shutdown(t.Context()))
}
