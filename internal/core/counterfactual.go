package core

import (
	"sort"
)

// Mitigation is an observable change that would lower the threat score
type Mitigation struct {
	Description string  `json:"description"`
	DeltaLLR    float64 `json:"delta_llr"`
}

// DefaultMitigations returns the stock catalog of benign explanations
func DefaultMitigations() []Mitigation {
	return []Mitigation{
		{Description: "Ring/knock (visitor protocol)", DeltaLLR: -1.2},
		{Description: "Valid delivery/service token", DeltaLLR: -2.2},
		{Description: "Reduce dwell time below 20s", DeltaLLR: -0.3},
		{Description: "Approach via public path", DeltaLLR: -0.6},
		{Description: "Recognized family/guest", DeltaLLR: -1.8},
	}
}

// Counterfactual lists the smallest set of mitigations, strongest first,
// that brings an alert below the alert threshold
type Counterfactual struct {
	Steps                []Mitigation `json:"steps"`
	ResultingProbability Probability  `json:"resulting_probability"`
	// Sufficient is false when the whole catalog is not enough to drop
	// below the alert threshold
	Sufficient bool `json:"sufficient"`
}

// SuggestDowngrades explains what would have kept an assessment out of the
// alerting bands. It returns nil for undefined probabilities and for
// assessments that are already below the alert threshold.
func SuggestDowngrades(assessment ThreatAssessment, agg *Aggregator, t Thresholds, catalog []Mitigation) *Counterfactual {
	p, ok := assessment.Probability.Value()
	if !ok || p < t.Alert {
		return nil
	}

	candidates := make([]Mitigation, 0, len(catalog))
	for _, m := range catalog {
		if m.DeltaLLR < 0 {
			candidates = append(candidates, m)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DeltaLLR < candidates[j].DeltaLLR
	})

	score := assessment.LogOdds
	result := &Counterfactual{Steps: []Mitigation{}}
	for _, m := range candidates {
		if agg.Calibrate(score).value < t.Alert {
			break
		}
		score = saturatingAdd(score, m.DeltaLLR)
		result.Steps = append(result.Steps, m)
	}

	result.ResultingProbability = agg.Calibrate(score)
	result.Sufficient = result.ResultingProbability.value < t.Alert
	return result
}
