// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/holomush/passport/internal/identity"
	"github.com/holomush/passport/internal/identity/sweeper"
)

var (
	_ identity.Recorder = (*Metrics)(nil)
	_ sweeper.Metrics   = (*Metrics)(nil)
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordProvision(identity.ResultOK)
	m.RecordProvision("session_save_failed")
	m.RecordResolution(identity.ResultOK)
	m.RecordSweep(2, 0)
	m.RecordSweep(0, 4)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ProvisionsTotal.WithLabelValues(identity.ResultOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProvisionsTotal.WithLabelValues("session_save_failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ResolutionsTotal.WithLabelValues(identity.ResultOK)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.OrphansSweptTotal), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.SweepFailuresTotal), 0)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
