package core

import (
	"fmt"
	"math"
	"sort"

	"github.com/mikey/threat-alert-engine/internal/factors"
)

// DefaultPriorLogit is the baseline log-odds used when no evidence is present.
// It equals a prior of -2.0 softened by a temperature of 1.4, which puts the
// neutral probability at about 19%.
const DefaultPriorLogit = -2.0 / 1.4

// MaxTermWeight bounds the magnitude of each merged factor weight. The sigmoid
// is saturated long before it, and bounded terms sum the same in any order.
const MaxTermWeight = 1e6

// logitEpsilon keeps Logit finite at the edges of [0,1]
const logitEpsilon = 1e-12

// AggregatorConfig controls how summed evidence is calibrated into a probability:
// p = sigmoid(clamp((prior + Σw - mean) / temperature, ±oddsCap))
type AggregatorConfig struct {
	PriorLogit  float64
	MeanLogit   float64
	Temperature float64
	// OddsCap bounds the calibrated log-odds; zero disables the cap
	OddsCap float64
}

// DefaultAggregatorConfig returns the calibration used by stock deployments
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		PriorLogit:  DefaultPriorLogit,
		MeanLogit:   0,
		Temperature: 1,
		OddsCap:     0,
	}
}

// Validate rejects non-finite values, temperatures below 1 and negative caps
func (c AggregatorConfig) Validate() error {
	for name, v := range map[string]float64{
		"prior_logit": c.PriorLogit,
		"mean_logit":  c.MeanLogit,
		"temperature": c.Temperature,
		"odds_cap":    c.OddsCap,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("aggregator %s must be finite", name)
		}
	}
	if c.Temperature < 1 {
		return fmt.Errorf("aggregator temperature %.4f must be at least 1", c.Temperature)
	}
	if c.OddsCap < 0 {
		return fmt.Errorf("aggregator odds_cap %.4f must not be negative", c.OddsCap)
	}
	return nil
}

// Aggregator turns evidence into a threat assessment. It holds only its
// immutable configuration and is safe for concurrent use.
type Aggregator struct {
	cfg AggregatorConfig
}

// NewAggregator validates cfg and returns an aggregator
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// Config returns the calibration settings
func (a *Aggregator) Config() AggregatorConfig {
	return a.cfg
}

// Assess aggregates the evidence and classifies the resulting probability
func (a *Aggregator) Assess(evidence Evidence, thresholds Thresholds) ThreatAssessment {
	assessment := a.Aggregate(evidence)
	assessment.Decision = Classify(assessment.Probability, thresholds)
	return assessment
}

// Aggregate combines evidence into a probability without classifying it.
// Malformed terms are discarded and reported, and merged weights are bounded
// by MaxTermWeight. If evidence was supplied but every term was discarded the
// probability is Undefined.
func (a *Aggregator) Aggregate(evidence Evidence) ThreatAssessment {
	merged := make(map[string]float64, len(evidence))
	order := make([]string, 0, len(evidence))
	var discarded []DiscardedTerm

	for _, term := range evidence {
		name, ok := factors.Normalize(term.Factor)
		if !ok {
			discarded = append(discarded, DiscardedTerm{
				Factor: term.Factor,
				Value:  formatWeight(term.Weight),
				Reason: DiscardInvalidName,
			})
			continue
		}
		if math.IsNaN(term.Weight) || math.IsInf(term.Weight, 0) {
			discarded = append(discarded, DiscardedTerm{
				Factor: name,
				Value:  formatWeight(term.Weight),
				Reason: DiscardNonFinite,
			})
			continue
		}
		if _, seen := merged[name]; !seen {
			order = append(order, name)
		}
		merged[name] = saturatingAdd(merged[name], term.Weight)
	}

	contributing := make([]FactorWeight, 0, len(order))
	for _, name := range order {
		w := math.Max(-MaxTermWeight, math.Min(MaxTermWeight, merged[name]))
		contributing = append(contributing, FactorWeight{Factor: name, Weight: w})
	}
	sort.SliceStable(contributing, func(i, j int) bool {
		wi, wj := math.Abs(contributing[i].Weight), math.Abs(contributing[j].Weight)
		if wi != wj {
			return wi > wj
		}
		return contributing[i].Factor < contributing[j].Factor
	})

	assessment := ThreatAssessment{
		Contributing: contributing,
		Discarded:    discarded,
	}

	if len(evidence) > 0 && len(contributing) == 0 {
		assessment.Probability = UndefinedProbability()
		return assessment
	}

	score := a.cfg.PriorLogit
	for _, fw := range contributing {
		score = saturatingAdd(score, fw.Weight)
	}
	assessment.LogOdds = score
	assessment.Probability = a.Calibrate(score)
	return assessment
}

// Calibrate converts a raw log-odds score into a probability
func (a *Aggregator) Calibrate(score float64) Probability {
	if math.IsNaN(score) {
		return UndefinedProbability()
	}
	z := (score - a.cfg.MeanLogit) / a.cfg.Temperature
	if a.cfg.OddsCap > 0 {
		z = math.Max(-a.cfg.OddsCap, math.Min(a.cfg.OddsCap, z))
	}
	return ProbabilityOf(Sigmoid(z))
}

// RawScoreFor returns the raw score whose calibrated probability is p,
// ignoring the odds cap
func (a *Aggregator) RawScoreFor(p float64) float64 {
	return Logit(p)*a.cfg.Temperature + a.cfg.MeanLogit
}

// Sigmoid is the logistic function, branched on sign so exp never overflows
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Logit is the inverse of Sigmoid with p clamped away from 0 and 1
func Logit(p float64) float64 {
	p = math.Max(logitEpsilon, math.Min(1-logitEpsilon, p))
	return math.Log(p / (1 - p))
}

// saturatingAdd adds two finite values, pinning overflow at ±MaxFloat64 so the
// score never becomes infinite or NaN
func saturatingAdd(a, b float64) float64 {
	sum := a + b
	switch {
	case math.IsInf(sum, 1):
		return math.MaxFloat64
	case math.IsInf(sum, -1):
		return -math.MaxFloat64
	}
	return sum
}
