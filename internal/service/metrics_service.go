package service

import (
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/mfi-loan-engine/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	batchDuration   prometheus.Histogram
	loansByClass    *prometheus.CounterVec
	classChanges    prometheus.Counter
	batchFailures   prometheus.Counter
	portfolioAtRisk prometheus.Gauge
	classBalance    *prometheus.GaugeVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	runCount             uint64
	reclassifiedCount    uint64
	failureCount         uint64
	parBits              uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reclassification_run_duration_seconds",
		Help:    "Duration of portfolio reclassification runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	loansByClass := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loans_reclassified_total",
		Help: "Loans classified by batch runs, by resulting performance class",
	}, []string{"class"})

	classChanges := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loan_classification_changes_total",
		Help: "Loans whose stored classification changed during a batch run",
	})

	batchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reclassification_failures_total",
		Help: "Loans that could not be reclassified",
	})

	portfolioAtRisk := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portfolio_at_risk_ratio",
		Help: "Balance of loans in arrears over total outstanding balance after the last run",
	})

	classBalance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "portfolio_class_balance",
		Help: "Outstanding balance per performance class after the last run",
	}, []string{"class"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, dbQueryDuration,
		batchDuration, loansByClass, classChanges, batchFailures, portfolioAtRisk, classBalance, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		batchDuration:   batchDuration,
		loansByClass:    loansByClass,
		classChanges:    classChanges,
		batchFailures:   batchFailures,
		portfolioAtRisk: portfolioAtRisk,
		classBalance:    classBalance,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveReclassification records the outcome of a finished batch run.
func (m *MetricsService) ObserveReclassification(report *models.ReclassificationReport) {
	if m == nil || report == nil {
		return
	}
	m.batchDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	for _, delta := range report.Deltas {
		m.loansByClass.WithLabelValues(string(delta.State.PerformanceClass)).Inc()
	}
	m.classChanges.Add(float64(report.Changed))
	m.batchFailures.Add(float64(report.Failed))

	par, _ := report.Summary.PortfolioAtRisk.Float64()
	m.portfolioAtRisk.Set(par)
	for class, bucket := range report.Summary.ByClass {
		balance, _ := bucket.Balance.Float64()
		m.classBalance.WithLabelValues(string(class)).Set(balance)
	}

	atomic.AddUint64(&m.runCount, 1)
	atomic.AddUint64(&m.reclassifiedCount, uint64(len(report.Deltas)))
	atomic.AddUint64(&m.failureCount, uint64(report.Failed))
	atomic.StoreUint64(&m.parBits, math.Float64bits(par))
}

// Snapshot returns aggregated metrics suitable for the API.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgDBMs float64
	if dbCount > 0 {
		avgDBMs = float64(dbDuration) / float64(dbCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		ReclassificationRuns:     atomic.LoadUint64(&m.runCount),
		LoansReclassified:        atomic.LoadUint64(&m.reclassifiedCount),
		ReclassificationFailures: atomic.LoadUint64(&m.failureCount),
		PortfolioAtRisk:          math.Float64frombits(atomic.LoadUint64(&m.parBits)),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
