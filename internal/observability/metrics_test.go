package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	body := scrape(t, metrics)
	assert.Contains(t, body, `pos_checkouts_total{result="success"} 0`)
	assert.Contains(t, body, "pos_jobs_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `pos_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `pos_http_request_duration_seconds_bucket{route="/test"`)
}

func TestDomainObservers(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveCheckout("success", 64.94)
	metrics.ObserveCheckout("insufficient_stock", 0)
	metrics.ObserveMpesa("oauth", "success")
	metrics.ObserveJob("reorder_scan", errors.New("boom"))
	metrics.ObserveLowStock("sale")

	body := scrape(t, metrics)
	assert.Contains(t, body, `pos_checkouts_total{result="success"} 1`)
	assert.Contains(t, body, `pos_checkouts_total{result="insufficient_stock"} 1`)
	assert.Contains(t, body, "pos_checkout_amount_total 64.94")
	assert.Contains(t, body, `pos_mpesa_requests_total{op="oauth",result="success"} 1`)
	assert.Contains(t, body, `pos_jobs_total{result="error",task="reorder_scan"} 1`)
	assert.Contains(t, body, `pos_low_stock_events_total{reason="sale"} 1`)

	var nilMetrics *Metrics
	nilMetrics.ObserveCheckout("success", 1)
}
