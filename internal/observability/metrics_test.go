package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesLedgerCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.Ledger.VoucherPosted("sales_invoice", 4)
	metrics.Ledger.PostingRejected("unbalanced")
	metrics.Ledger.CostingShortfall(2.5)

	body := scrape(t, metrics)
	require.Contains(t, body, `ledger_vouchers_posted_total{reference_type="sales_invoice"} 1`)
	require.Contains(t, body, "ledger_entries_posted_total 4")
	require.Contains(t, body, `ledger_postings_rejected_total{reason="unbalanced"} 1`)
	require.Contains(t, body, "ledger_cogs_shortfall_units_total 2.5")
}

func TestNilLedgerMetricsIsNoop(t *testing.T) {
	var m *LedgerMetrics
	require.NotPanics(t, func() {
		m.VoucherPosted("", 2)
		m.PostingRejected("validation")
		m.VoucherReversed()
		m.SequenceConflict("VOU")
		m.CostingShortfall(1)
		m.DepreciationPosted()
		m.DepreciationFailed()
	})
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/healthz")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	if !strings.Contains(body, `ledger_http_requests_total{code="418",route="/healthz"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	require.Contains(t, body, `ledger_http_request_duration_seconds_bucket{route="/healthz"`)
}
