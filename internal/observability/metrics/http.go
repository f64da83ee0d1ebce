package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "msr"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rateLimited     *prometheus.CounterVec

	strategyRequestsTotal *prometheus.CounterVec
	retrievedChunks       *prometheus.HistogramVec
	noContextTotal        *prometheus.CounterVec
	retrievalDuration     *prometheus.HistogramVec
	searchAttemptsTotal   *prometheus.CounterVec
	searchFailuresTotal   *prometheus.CounterVec
	routeDecisionsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rateLimited := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"service", "path"},
	)
	strategyRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "strategy_requests_total",
			Help:      "Total retrieval executions by strategy and outcome.",
		},
		[]string{"service", "endpoint", "strategy", "status"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "retrieved_chunks",
			Help:      "Distribution of merged chunks per successful retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "strategy"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total retrievals that returned no chunks.",
		},
		[]string{"service", "strategy"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "strategy"},
	)
	searchAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "attempts_total",
			Help:      "Similarity search attempts including retries.",
		},
		[]string{"service", "operation"},
	)
	searchFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "failures_total",
			Help:      "Failed similarity search attempts; final=true when no retry followed.",
		},
		[]string{"service", "operation", "final"},
	)
	routeDecisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "decisions_total",
			Help:      "Model routing decisions by method and chosen model.",
		},
		[]string{"service", "method", "model"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rateLimited,
		strategyRequestsTotal,
		retrievedChunks,
		noContextTotal,
		retrievalDuration,
		searchAttemptsTotal,
		searchFailuresTotal,
		routeDecisionsTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		rateLimited:           rateLimited,
		strategyRequestsTotal: strategyRequestsTotal,
		retrievedChunks:       retrievedChunks,
		noContextTotal:        noContextTotal,
		retrievalDuration:     retrievalDuration,
		searchAttemptsTotal:   searchAttemptsTotal,
		searchFailuresTotal:   searchFailuresTotal,
		routeDecisionsTotal:   routeDecisionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/sources/"):
		return "/v1/sources/{source_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRateLimited(service, path string) {
	m.rateLimited.WithLabelValues(service, normalizePath(path)).Inc()
}

// RecordRetrieval records one strategy execution. chunkCount is ignored when
// err is set.
func (m *HTTPServerMetrics) RecordRetrieval(service, endpoint, strategy string, chunkCount int, duration time.Duration, err error) {
	if strategy == "" {
		strategy = "unknown"
	}
	if err != nil {
		m.strategyRequestsTotal.WithLabelValues(service, endpoint, strategy, "error").Inc()
		return
	}
	m.strategyRequestsTotal.WithLabelValues(service, endpoint, strategy, "success").Inc()
	m.retrievedChunks.WithLabelValues(service, strategy).Observe(float64(chunkCount))
	m.retrievalDuration.WithLabelValues(service, strategy).Observe(duration.Seconds())
	if chunkCount == 0 {
		m.noContextTotal.WithLabelValues(service, strategy).Inc()
	}
}

func (m *HTTPServerMetrics) RecordRouteDecision(service, method, model string) {
	if model == "" {
		model = "none"
	}
	m.routeDecisionsTotal.WithLabelValues(service, method, model).Inc()
}

// SearchObserver adapts the search counters to the retry executor's
// observer hook.
func (m *HTTPServerMetrics) SearchObserver(service string) *SearchObserver {
	return &SearchObserver{metrics: m, service: service}
}

type SearchObserver struct {
	metrics *HTTPServerMetrics
	service string
}

func (o *SearchObserver) OnAttempt(operation string, _ int) {
	o.metrics.searchAttemptsTotal.WithLabelValues(o.service, operation).Inc()
}

func (o *SearchObserver) OnFailure(operation string, _ int, _ error, retryIn time.Duration) {
	o.metrics.searchFailuresTotal.WithLabelValues(o.service, operation, strconv.FormatBool(retryIn == 0)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
