package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry for the dashboard.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploadsTotal    *prometheus.CounterVec
	rowsIngested    prometheus.Counter
	reportsTotal    prometheus.Counter
	reportDuration  prometheus.Histogram
	violationsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesdash_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "salesdash_http_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesdash_uploads_total",
			Help: "Uploaded files by outcome.",
		}, []string{"outcome"}),
		rowsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_rows_ingested_total",
			Help: "Transaction rows accepted from uploads.",
		}),
		reportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "salesdash_reports_total",
			Help: "Reports computed.",
		}),
		reportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salesdash_report_duration_seconds",
			Help:    "Time spent aggregating one report.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		violationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salesdash_product_violations_total",
			Help: "Products excluded from reports by validation rule.",
		}, []string{"rule"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.uploadsTotal,
		m.rowsIngested,
		m.reportsTotal,
		m.reportDuration,
		m.violationsTotal,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) UploadAccepted(rows int) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues("accepted").Inc()
	m.rowsIngested.Add(float64(rows))
}

func (m *Metrics) UploadRejected() {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues("rejected").Inc()
}

func (m *Metrics) ReportComputed(d time.Duration) {
	if m == nil {
		return
	}
	m.reportsTotal.Inc()
	m.reportDuration.Observe(d.Seconds())
}

func (m *Metrics) Violation(rule string) {
	if m == nil {
		return
	}
	m.violationsTotal.WithLabelValues(rule).Inc()
}
