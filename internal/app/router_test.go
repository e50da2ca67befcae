package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Emran025/supermarket-system-sub001/internal/observability"
)

type pingMounter struct{}

func (pingMounter) MountRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndReadiness(t *testing.T) {
	router := NewRouter(RouterParams{
		Config:  &Config{AppEnv: "development"},
		Metrics: observability.NewMetrics(),
		Checks: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		},
		Jobs: pingMounter{},
	})

	rec := serve(t, router, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = serve(t, router, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, map[string]string{"postgres": "ok", "redis": "connection refused"}, body)

	rec = serve(t, router, "/jobs/ping")
	require.Equal(t, "pong", rec.Body.String())

	rec = serve(t, router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "ledger_http_requests_total"))
}

func TestRouterWithoutMetrics(t *testing.T) {
	router := NewRouter(RouterParams{})
	require.Equal(t, http.StatusServiceUnavailable, serve(t, router, "/metrics").Code)
	require.Equal(t, http.StatusOK, serve(t, router, "/readyz").Code)
	require.Equal(t, http.StatusNotFound, serve(t, router, "/jobs/ping").Code)
}
