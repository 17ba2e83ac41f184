package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics exported by the POS services.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	checkoutAmount  prometheus.Counter
	mpesaRequests   *prometheus.CounterVec
	jobs            *prometheus.CounterVec
	lowStock        *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and domain metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pos_http_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_checkouts_total",
			Help: "Checkout attempts by result.",
		}, []string{"result"}),
		checkoutAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_checkout_amount_total",
			Help: "Sum of completed checkout totals.",
		}),
		mpesaRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_mpesa_requests_total",
			Help: "M-Pesa provider interactions by operation and result.",
		}, []string{"op", "result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_jobs_total",
			Help: "Background job executions by task and result.",
		}, []string{"task", "result"}),
		lowStock: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_low_stock_events_total",
			Help: "Stock changes that left a product at or below its reorder level.",
		}, []string{"reason"}),
	}
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.checkouts,
		m.checkoutAmount,
		m.mpesaRequests,
		m.jobs,
		m.lowStock,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	// Pre-create the common series so dashboards see zeros before traffic.
	m.checkouts.WithLabelValues("success")
	m.jobs.WithLabelValues("reorder_scan", "success")
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveCheckout counts a checkout outcome and adds successful totals.
func (m *Metrics) ObserveCheckout(result string, amount float64) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
	if result == "success" && amount > 0 {
		m.checkoutAmount.Add(amount)
	}
}

// ObserveMpesa counts a provider interaction.
func (m *Metrics) ObserveMpesa(op, result string) {
	if m == nil {
		return
	}
	m.mpesaRequests.WithLabelValues(op, result).Inc()
}

// ObserveJob counts a background job execution.
func (m *Metrics) ObserveJob(task string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.jobs.WithLabelValues(task, result).Inc()
}

// ObserveLowStock counts a reorder-level crossing.
func (m *Metrics) ObserveLowStock(reason string) {
	if m == nil {
		return
	}
	m.lowStock.WithLabelValues(reason).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
