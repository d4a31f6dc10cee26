// Package metrics exposes Prometheus metrics for the scraping engine,
// trimmed from the teacher's MetricsManager down to the counters and
// histograms SPEC_FULL.md's run/fetch/item lifecycle actually produces —
// no captcha or proxy metrics, since those subsystems were dropped.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the engine records during a run.
type Registry struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	requestRetries  *prometheus.CounterVec

	itemsFetched   *prometheus.CounterVec
	itemsPersisted *prometheus.CounterVec
	itemsDropped   *prometheus.CounterVec

	rateLimitWaits *prometheus.HistogramVec

	circuitBreakerState *prometheus.GaugeVec

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
}

// Config configures the metrics namespace/subsystem.
type Config struct {
	Namespace string
	Subsystem string
}

// New registers every metric against the default Prometheus registry.
func New(cfg Config) *Registry {
	if cfg.Namespace == "" {
		cfg.Namespace = "scrapping"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "engine"
	}

	return &Registry{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "requests_total", Help: "Total number of fetch requests made",
		}, []string{"source_id", "engine", "status_code"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "request_duration_seconds", Help: "Fetch request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"source_id", "engine"}),

		requestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "request_errors_total", Help: "Total number of failed fetch requests",
		}, []string{"source_id", "kind"}),

		requestRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "request_retries_total", Help: "Total number of fetch retries",
		}, []string{"source_id"}),

		itemsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "items_fetched_total", Help: "Total number of detail items fetched",
		}, []string{"source_id"}),

		itemsPersisted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "items_persisted_total", Help: "Total number of items persisted",
		}, []string{"source_id"}),

		itemsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "items_dropped_total", Help: "Total number of items dropped by reason",
		}, []string{"source_id", "reason"}),

		rateLimitWaits: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "rate_limit_wait_seconds", Help: "Time spent waiting on the per-domain rate limiter",
			Buckets: prometheus.DefBuckets,
		}, []string{"domain"}),

		circuitBreakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "circuit_breaker_state", Help: "0=closed 1=open 2=half_open",
		}, []string{"source_id"}),

		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "runs_total", Help: "Total number of source runs by outcome",
		}, []string{"source_id", "outcome"}),

		runDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem,
			Name: "run_duration_seconds", Help: "Wall-clock duration of a source run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"source_id"}),
	}
}

func (r *Registry) RecordRequest(sourceID, engine string, statusCode int, d time.Duration) {
	r.requestsTotal.WithLabelValues(sourceID, engine, strconv.Itoa(statusCode)).Inc()
	r.requestDuration.WithLabelValues(sourceID, engine).Observe(d.Seconds())
}

func (r *Registry) RecordRequestError(sourceID, kind string) {
	r.requestErrors.WithLabelValues(sourceID, kind).Inc()
}

func (r *Registry) RecordRequestRetry(sourceID string) {
	r.requestRetries.WithLabelValues(sourceID).Inc()
}

func (r *Registry) RecordItemFetched(sourceID string) {
	r.itemsFetched.WithLabelValues(sourceID).Inc()
}

func (r *Registry) RecordItemPersisted(sourceID string) {
	r.itemsPersisted.WithLabelValues(sourceID).Inc()
}

func (r *Registry) RecordItemDropped(sourceID, reason string) {
	r.itemsDropped.WithLabelValues(sourceID, reason).Inc()
}

func (r *Registry) RecordRateLimitWait(domain string, d time.Duration) {
	r.rateLimitWaits.WithLabelValues(domain).Observe(d.Seconds())
}

func (r *Registry) SetCircuitBreakerState(sourceID string, state int) {
	r.circuitBreakerState.WithLabelValues(sourceID).Set(float64(state))
}

func (r *Registry) RecordRun(sourceID, outcome string, d time.Duration) {
	r.runsTotal.WithLabelValues(sourceID, outcome).Inc()
	r.runDuration.WithLabelValues(sourceID).Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a metrics HTTP server and blocks until ctx is cancelled.
func (r *Registry) Serve(ctx context.Context, address, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, r.Handler())
	server := &http.Server{Addr: address, Handler: mux}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	return server.ListenAndServe()
}
