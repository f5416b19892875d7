package core

// ThreatAssessment is the outcome of aggregating one piece of evidence
type ThreatAssessment struct {
	Probability Probability   `json:"probability"`
	Decision    AlertDecision `json:"decision"`
	// LogOdds is the raw score before calibration. It is zero when the
	// probability is undefined.
	LogOdds      float64         `json:"log_odds"`
	Contributing []FactorWeight  `json:"contributing"`
	Discarded    []DiscardedTerm `json:"discarded,omitempty"`
}

// Defined reports whether the assessment carries a numeric probability
func (a ThreatAssessment) Defined() bool {
	return !a.Probability.IsUndefined()
}
