package liveness

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/ports/secondary"
)

var livenessStates = []secondary.LivenessState{
	secondary.LivenessActive,
	secondary.LivenessSynced,
	secondary.LivenessStopped,
}

// Metrics exposes liveness and attempt outcomes as Prometheus collectors.
// It owns its registry so that tests and multiple instances never collide.
type Metrics struct {
	registry   *prometheus.Registry
	state      *prometheus.GaugeVec
	lastSynced prometheus.Gauge
	attempts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	outbox     *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "attend_liveness_state",
				Help: "Current liveness presentation (1 for the active state)",
			},
			[]string{"state"},
		),
		lastSynced: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "attend_last_synced_timestamp_seconds",
				Help: "Unix time of the last successful status-log delivery",
			},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attend_status_log_attempts_total",
				Help: "Status-log attempts by trigger and final phase",
			},
			[]string{"trigger", "phase"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "attend_status_log_attempt_duration_seconds",
				Help:    "Status-log attempt latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		outbox: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "attend_outbox_records",
				Help: "Status-log records in the outbox by sync-state",
			},
			[]string{"sync_state"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.state,
		m.lastSynced,
		m.attempts,
		m.duration,
		m.outbox,
	)
	return m
}

// Registry returns the registry to serve on /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Show records the current liveness presentation.
func (m *Metrics) Show(ctx context.Context, signal secondary.LivenessSignal) {
	for _, s := range livenessStates {
		v := 0.0
		if s == signal.State {
			v = 1
		}
		m.state.WithLabelValues(string(s)).Set(v)
	}
	if signal.State == secondary.LivenessSynced && !signal.SyncedAt.IsZero() {
		m.lastSynced.Set(float64(signal.SyncedAt.Unix()))
	}
}

// ObserveAttempt counts one attempt.
func (m *Metrics) ObserveAttempt(trigger, phase string, d time.Duration) {
	m.attempts.WithLabelValues(trigger, phase).Inc()
	m.duration.WithLabelValues(trigger).Observe(d.Seconds())
}

// SetOutbox records the outbox counts.
func (m *Metrics) SetOutbox(summary primary.OutboxSummary) {
	m.outbox.WithLabelValues("PENDING").Set(float64(summary.Pending))
	m.outbox.WithLabelValues("SENT").Set(float64(summary.Sent))
	m.outbox.WithLabelValues("FAILED").Set(float64(summary.Failed))
}

var (
	_ secondary.LivenessSurface = (*Metrics)(nil)
	_ secondary.AttemptObserver = (*Metrics)(nil)
)
