package core

import (
	"errors"
	"fmt"
	"math"
)

// Default severity band boundaries
const (
	DefaultCriticalThreshold = 0.5
	DefaultElevatedThreshold = 0.3
	DefaultAlertThreshold    = 0.15
	// DefaultWaitRatio derives the wait threshold from the alert threshold
	DefaultWaitRatio = 0.5
)

// ErrInvalidThresholds is returned when a threshold configuration violates
// 0 <= wait < alert < elevated < critical <= 1
var ErrInvalidThresholds = errors.New("invalid threshold configuration")

// Thresholds holds the lower bound of every severity band. Bounds are
// inclusive: a probability equal to a bound falls into the higher band.
type Thresholds struct {
	Critical float64
	Elevated float64
	Alert    float64
	Wait     float64
	// FailSafe is the decision used when the probability is undefined
	FailSafe AlertDecision
}

// DefaultThresholds returns the stock 50% / 30% / 15% / 7.5% bands
func DefaultThresholds() Thresholds {
	return Thresholds{
		Critical: DefaultCriticalThreshold,
		Elevated: DefaultElevatedThreshold,
		Alert:    DefaultAlertThreshold,
		Wait:     DefaultAlertThreshold * DefaultWaitRatio,
		FailSafe: DecisionStandard,
	}
}

// NewThresholds builds a validated configuration with the stock critical and
// elevated bands. A wait value of zero or less derives wait from alert.
func NewThresholds(alert, wait float64) (Thresholds, error) {
	t := DefaultThresholds()
	t.Alert = alert
	if wait <= 0 {
		wait = alert * DefaultWaitRatio
	}
	t.Wait = wait
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}

// Validate checks the band ordering and the fail-safe decision
func (t Thresholds) Validate() error {
	bounds := []struct {
		name  string
		value float64
	}{
		{"wait", t.Wait},
		{"alert", t.Alert},
		{"elevated", t.Elevated},
		{"critical", t.Critical},
	}

	for _, b := range bounds {
		if math.IsNaN(b.value) || math.IsInf(b.value, 0) {
			return fmt.Errorf("%w: %s threshold must be finite", ErrInvalidThresholds, b.name)
		}
		if b.value < 0 || b.value > 1 {
			return fmt.Errorf("%w: %s threshold %.4f outside [0,1]", ErrInvalidThresholds, b.name, b.value)
		}
	}

	for i := 1; i < len(bounds); i++ {
		lower, upper := bounds[i-1], bounds[i]
		if lower.value >= upper.value {
			return fmt.Errorf("%w: %s threshold %.4f must be below %s threshold %.4f",
				ErrInvalidThresholds, lower.name, lower.value, upper.name, upper.value)
		}
	}

	if !t.FailSafe.Valid() || t.FailSafe < DecisionStandard {
		return fmt.Errorf("%w: fail-safe decision %s must be standard or higher", ErrInvalidThresholds, t.FailSafe)
	}

	return nil
}

// Bands describes each decision with its inclusive lower bound, most severe first
func (t Thresholds) Bands() []Band {
	return []Band{
		{Decision: DecisionCritical, Lower: t.Critical, Upper: 1},
		{Decision: DecisionElevated, Lower: t.Elevated, Upper: t.Critical},
		{Decision: DecisionStandard, Lower: t.Alert, Upper: t.Elevated},
		{Decision: DecisionWait, Lower: t.Wait, Upper: t.Alert},
		{Decision: DecisionIgnore, Lower: 0, Upper: t.Wait},
	}
}

// Band is a half-open probability interval [Lower, Upper) mapped to a decision.
// The critical band also includes 1.
type Band struct {
	Decision AlertDecision `json:"decision"`
	Lower    float64       `json:"lower"`
	Upper    float64       `json:"upper"`
}
