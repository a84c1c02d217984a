package observability

import (
	"time"

	"github.com/boddenberg/lease-report-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Report formats used as the "format" label.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Metrics holds all Prometheus metrics for the report service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	buildDuration    *prometheus.HistogramVec
	reportsGenerated *prometheus.CounterVec
	storeErrors      *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	lastReportSize   *prometheus.GaugeVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		buildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lease_report_build_duration_seconds",
				Help:    "Duration of report operations, store reads included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		reportsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lease_reports_generated_total",
				Help: "Total reports served, by output format.",
			},
			[]string{"format"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lease_report_store_errors_total",
				Help: "Total errors returned by the report data store.",
			},
			[]string{"store"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lease_report_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lease_report_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		lastReportSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lease_report_last_size",
				Help: "Size of the most recently built report.",
			},
			[]string{"kind"},
		),
	}
}

// RecordBuildDuration records the duration of a report operation.
func (m *Metrics) RecordBuildDuration(operation string, d time.Duration) {
	m.buildDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrReport counts a served report in the given format.
func (m *Metrics) IncrReport(format string) {
	m.reportsGenerated.WithLabelValues(format).Inc()
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(store string) {
	m.storeErrors.WithLabelValues(store).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordReportSize stores the shape of the last built report.
func (m *Metrics) RecordReportSize(floors, units, tenants int) {
	m.lastReportSize.WithLabelValues("floors").Set(float64(floors))
	m.lastReportSize.WithLabelValues("units").Set(float64(units))
	m.lastReportSize.WithLabelValues("tenants").Set(float64(tenants))
}

// GetReportSnapshot returns a snapshot of report metrics suitable for the
// GET /v1/metrics/reports endpoint. Counters are cumulative since start.
func (m *Metrics) GetReportSnapshot() *domain.ReportMetrics {
	reports := counterValue(m.reportsGenerated, FormatJSON)
	exports := counterValue(m.reportsGenerated, FormatXLSX)
	hits := counterValue(m.cacheHits, "report")
	misses := counterValue(m.cacheMisses, "report")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.ReportMetrics{
		ReportsGenerated:  int64(reports),
		ExportsGenerated:  int64(exports),
		StoreErrors:       int64(sumCounter(m.storeErrors)),
		CacheHits:         int64(hits),
		CacheMisses:       int64(misses),
		CacheHitRate:      hitRate,
		LastReportFloors:  int64(gaugeValue(m.lastReportSize, "floors")),
		LastReportUnits:   int64(gaugeValue(m.lastReportSize, "units")),
		LastReportTenants: int64(gaugeValue(m.lastReportSize, "tenants")),
		Period:            "all_time",
	}
}

// counterValue extracts the current float64 value from a CounterVec for a given label.
func counterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func gaugeValue(gv *prometheus.GaugeVec, label string) float64 {
	m := &dto.Metric{}
	if err := gv.WithLabelValues(label).Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// sumCounter adds up every label combination of cv.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err == nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
