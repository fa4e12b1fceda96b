// Package metric exposes Prometheus instrumentation for generation
// jobs, render tasks, and the cache. A nil *Metrics is a no-op so the
// pipeline can instrument unconditionally.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Task result labels.
const (
	ResultRendered = "rendered"
	ResultCacheHit = "cache_hit"
	ResultFailed   = "failed"
)

// Watch pass kind labels.
const (
	PassFull        = "full"
	PassIncremental = "incremental"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	jobsTotal        *prometheus.CounterVec
	tasksTotal       *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	cacheEntries     prometheus.Gauge
	watchPassesTotal *prometheus.CounterVec
}

// New registers the semgen collectors with reg and returns them. Pass
// prometheus.DefaultRegisterer for process-global metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semgen",
			Name:      "jobs_total",
			Help:      "Generation jobs by terminal status.",
		}, []string{"status"}),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semgen",
			Name:      "tasks_total",
			Help:      "Render tasks by result.",
		}, []string{"result"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semgen",
			Name:      "render_duration_seconds",
			Help:      "Wall time of template renders that actually ran.",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "semgen",
			Name:      "cache_entries",
			Help:      "Live render cache entries.",
		}),
		watchPassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semgen",
			Name:      "watch_passes_total",
			Help:      "Watch-mode generation passes by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.jobsTotal, m.tasksTotal, m.renderDuration, m.cacheEntries, m.watchPassesTotal)
	return m
}

// ObserveJob records a job reaching a terminal status.
func (m *Metrics) ObserveJob(status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status).Inc()
}

// ObserveTask records one task result; render duration is tracked
// only for tasks that actually rendered.
func (m *Metrics) ObserveTask(result string, seconds float64) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(result).Inc()
	if result == ResultRendered {
		m.renderDuration.Observe(seconds)
	}
}

// SetCacheEntries tracks the live entry count after a pass.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// ObserveWatchPass records a watch-triggered pass.
func (m *Metrics) ObserveWatchPass(kind string) {
	if m == nil {
		return
	}
	m.watchPassesTotal.WithLabelValues(kind).Inc()
}
