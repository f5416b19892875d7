package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	require.NoError(t, th.Validate())
	assert.Equal(t, 0.5, th.Critical)
	assert.Equal(t, 0.3, th.Elevated)
	assert.Equal(t, 0.15, th.Alert)
	assert.Equal(t, 0.075, th.Wait)
	assert.Equal(t, DecisionStandard, th.FailSafe)
}

func TestNewThresholds(t *testing.T) {
	th, err := NewThresholds(0.2, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.1, th.Wait)

	th, err = NewThresholds(0.2, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 0.05, th.Wait)

	_, err = NewThresholds(0.2, 0.2)
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{"wait equals alert", func(th *Thresholds) { th.Wait = th.Alert }},
		{"alert above elevated", func(th *Thresholds) { th.Alert = 0.31 }},
		{"elevated equals critical", func(th *Thresholds) { th.Elevated = 0.5 }},
		{"critical above one", func(th *Thresholds) { th.Critical = 1.01 }},
		{"negative wait", func(th *Thresholds) { th.Wait = -0.01 }},
		{"nan alert", func(th *Thresholds) { th.Alert = math.NaN() }},
		{"infinite critical", func(th *Thresholds) { th.Critical = math.Inf(1) }},
		{"fail safe wait", func(th *Thresholds) { th.FailSafe = DecisionWait }},
		{"fail safe out of range", func(th *Thresholds) { th.FailSafe = AlertDecision(9) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			assert.ErrorIs(t, th.Validate(), ErrInvalidThresholds)
		})
	}

	edge := Thresholds{Critical: 1, Elevated: 0.9, Alert: 0.5, Wait: 0, FailSafe: DecisionCritical}
	assert.NoError(t, edge.Validate())
}

func TestBands(t *testing.T) {
	bands := DefaultThresholds().Bands()
	require.Len(t, bands, 5)
	for i, d := range AllDecisions {
		assert.Equal(t, d, bands[i].Decision)
	}
	for i := 1; i < len(bands); i++ {
		assert.Equal(t, bands[i].Upper, bands[i-1].Lower, "bands are contiguous")
	}
	assert.Equal(t, 1.0, bands[0].Upper)
	assert.Equal(t, 0.0, bands[4].Lower)
}
