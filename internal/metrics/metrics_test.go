package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementDecision("critical")
		m.ObserveAssessLatency(time.Millisecond)
		m.AddDiscarded("non_finite", 2)
		m.AddUnknownFactors(1)
		m.IncrementStoreError("save")
		m.IncrementIntake("http", "ok")
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.IncrementDecision("critical")
	m.IncrementDecision("critical")
	m.IncrementDecision("wait")
	m.AddDiscarded("non_finite", 3)
	m.AddDiscarded("non_finite", 0)
	m.AddUnknownFactors(2)
	m.IncrementStoreError("save")
	m.IncrementIntake("redis", "decode_error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("wait")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DiscardedTerms.WithLabelValues("non_finite")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UnknownFactors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntakeEvents.WithLabelValues("redis", "decode_error")))
}

func TestSeparateRegistries(t *testing.T) {
	a := New()
	b := New()
	a.IncrementDecision("ignore")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Decisions.WithLabelValues("ignore")))
}
