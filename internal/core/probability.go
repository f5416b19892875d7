package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Probability is a threat probability in [0,1] or the Undefined sentinel.
// Undefined is produced when evidence was present but none of it could be
// resolved to a number; classifiers must not treat it as low risk.
// The zero value is Undefined.
type Probability struct {
	value   float64
	defined bool
}

// ProbabilityOf wraps v, clamping it to [0,1]. NaN yields Undefined.
func ProbabilityOf(v float64) Probability {
	if math.IsNaN(v) {
		return UndefinedProbability()
	}
	return Probability{value: math.Max(0, math.Min(1, v)), defined: true}
}

// UndefinedProbability returns the sentinel for unresolvable evidence
func UndefinedProbability() Probability {
	return Probability{}
}

// Value returns the numeric probability and whether it is defined
func (p Probability) Value() (float64, bool) {
	return p.value, p.defined
}

// IsUndefined reports whether p is the sentinel
func (p Probability) IsUndefined() bool {
	return !p.defined
}

// String formats the probability as a percentage or "undefined"
func (p Probability) String() string {
	if !p.defined {
		return "undefined"
	}
	return fmt.Sprintf("%.1f%%", p.value*100)
}

// MarshalJSON encodes a defined probability as a number and Undefined as null
func (p Probability) MarshalJSON() ([]byte, error) {
	if !p.defined {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(p.value, 'g', -1, 64)), nil
}

// UnmarshalJSON accepts a number or null
func (p *Probability) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = UndefinedProbability()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid probability: %w", err)
	}
	*p = ProbabilityOf(v)
	return nil
}
