// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the passport Prometheus metrics. It satisfies both
// identity.Recorder and sweeper.Metrics.
type Metrics struct {
	ProvisionsTotal    *prometheus.CounterVec
	ResolutionsTotal   *prometheus.CounterVec
	OrphansSweptTotal  prometheus.Counter
	SweepFailuresTotal prometheus.Counter
}

// NewMetrics creates and registers the passport metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProvisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passport_provisions_total",
				Help: "Total number of anonymous provisioning attempts by result",
			},
			[]string{"result"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passport_resolutions_total",
				Help: "Total number of token resolutions by result",
			},
			[]string{"result"},
		),
		OrphansSweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passport_orphans_swept_total",
			Help: "Total number of orphaned anonymous identities removed",
		}),
		SweepFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passport_sweep_failures_total",
			Help: "Total number of sweep operations that failed",
		}),
	}

	reg.MustRegister(m.ProvisionsTotal, m.ResolutionsTotal, m.OrphansSweptTotal, m.SweepFailuresTotal)
	return m
}

// RecordProvision counts a provisioning outcome.
func (m *Metrics) RecordProvision(result string) {
	m.ProvisionsTotal.WithLabelValues(result).Inc()
}

// RecordResolution counts a resolution outcome.
func (m *Metrics) RecordResolution(result string) {
	m.ResolutionsTotal.WithLabelValues(result).Inc()
}

// RecordSweep counts the outcome of one sweep pass.
func (m *Metrics) RecordSweep(swept, failed int) {
	if swept > 0 {
		m.OrphansSweptTotal.Add(float64(swept))
	}
	if failed > 0 {
		m.SweepFailuresTotal.Add(float64(failed))
	}
}
