package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sweep outcomes used as the "outcome" label.
const (
	SweepSucceeded = "succeeded"
	SweepFailed    = "failed"
	SweepSkipped   = "skipped"
)

// SweepMetrics tracks the background sweeps run by the cron worker.
type SweepMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	processed   *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	lockMissed  prometheus.Counter
}

func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	if reg == nil {
		return &SweepMetrics{}
	}
	m := &SweepMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inventory_sweep_duration_seconds",
			Help:    "Wall time of a sweep run.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_sweep_runs_total",
			Help: "Sweep runs by outcome.",
		}, []string{"job", "outcome"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_sweep_processed_total",
			Help: "Rows handled by sweeps (expired reservations, low-stock items).",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "inventory_sweep_last_success_timestamp_seconds",
			Help: "Unix time of the last successful sweep run.",
		}, []string{"job"}),
		lockMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_sweep_lock_missed_total",
			Help: "Cycles skipped because another worker held the sweep lock.",
		}),
	}
	reg.MustRegister(m.duration, m.runs, m.processed, m.lastSuccess, m.lockMissed)
	return m
}

// ObserveRun records a finished sweep. A nil err counts as success.
func (m *SweepMetrics) ObserveRun(job string, took time.Duration, processed int, err error) {
	if m == nil || m.runs == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if processed > 0 {
		m.processed.WithLabelValues(job).Add(float64(processed))
	}
	if err != nil {
		m.runs.WithLabelValues(job, SweepFailed).Inc()
		return
	}
	m.runs.WithLabelValues(job, SweepSucceeded).Inc()
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}

// ObserveSkip records a job that decided it was not due yet.
func (m *SweepMetrics) ObserveSkip(job string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), SweepSkipped).Inc()
}

func (m *SweepMetrics) LockMissed() {
	if m == nil || m.lockMissed == nil {
		return
	}
	m.lockMissed.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
