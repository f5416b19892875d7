package core

import (
	"math"
	"sort"
)

// QuestionKind names a follow-up observation the engine can ask for
type QuestionKind string

const (
	QuestionAwaitDoorbell      QuestionKind = "await_doorbell"
	QuestionCheckDeliveryToken QuestionKind = "check_delivery_token"
	QuestionRequestSecondAngle QuestionKind = "request_second_angle"
	QuestionImproveFaceCapture QuestionKind = "improve_face_capture"
)

// ReasonerConfig holds, for every question, how likely the answer is to be
// available and how far a positive answer shifts the log-odds
type ReasonerConfig struct {
	RingLLR     float64
	TokenLLR    float64
	FaceGainLLR float64

	RingProbability         float64
	TokenProbability        float64
	SecondAngleProbability  float64
	FaceImprovedProbability float64
}

// DefaultReasonerConfig returns the stock question model
func DefaultReasonerConfig() ReasonerConfig {
	return ReasonerConfig{
		RingLLR:                 -1.2,
		TokenLLR:                -2.2,
		FaceGainLLR:             -0.6,
		RingProbability:         0.25,
		TokenProbability:        0.2,
		SecondAngleProbability:  0.6,
		FaceImprovedProbability: 0.5,
	}
}

// QuestionProposal is a question ranked by how much it is expected to
// reduce uncertainty about the current event
type QuestionProposal struct {
	Kind                     QuestionKind `json:"kind"`
	ExpectedEntropyReduction float64      `json:"expected_entropy_reduction"`
}

// RankQuestions scores every question by expected entropy reduction and
// returns them most informative first. Undefined assessments get no questions.
func RankQuestions(assessment ThreatAssessment, agg *Aggregator, cfg ReasonerConfig) []QuestionProposal {
	if !assessment.Defined() {
		return nil
	}

	score := assessment.LogOdds
	p0 := agg.Calibrate(score).value
	h0 := entropy(p0)

	candidates := []struct {
		kind QuestionKind
		q    float64
		llr  float64
	}{
		{QuestionAwaitDoorbell, cfg.RingProbability, cfg.RingLLR},
		{QuestionCheckDeliveryToken, cfg.TokenProbability, cfg.TokenLLR},
		{QuestionRequestSecondAngle, cfg.SecondAngleProbability, cfg.FaceGainLLR},
		{QuestionImproveFaceCapture, cfg.FaceImprovedProbability, cfg.FaceGainLLR},
	}

	proposals := make([]QuestionProposal, 0, len(candidates))
	for _, c := range candidates {
		q := math.Max(0, math.Min(1, c.q))
		pYes := agg.Calibrate(saturatingAdd(score, c.llr)).value
		expected := q*entropy(pYes) + (1-q)*h0
		proposals = append(proposals, QuestionProposal{
			Kind:                     c.kind,
			ExpectedEntropyReduction: math.Max(0, h0-expected),
		})
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].ExpectedEntropyReduction > proposals[j].ExpectedEntropyReduction
	})
	return proposals
}

// entropy is the binary entropy in nats
func entropy(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	return -p*math.Log(p) - (1-p)*math.Log(1-p)
}
