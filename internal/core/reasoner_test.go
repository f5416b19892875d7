package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankQuestionsAtBaseline(t *testing.T) {
	agg := newTestAggregator(t)
	a := agg.Assess(nil, DefaultThresholds())

	questions := RankQuestions(a, agg, DefaultReasonerConfig())
	require.Len(t, questions, 4)

	kinds := make([]QuestionKind, 0, len(questions))
	for _, q := range questions {
		kinds = append(kinds, q.Kind)
	}
	assert.Equal(t, []QuestionKind{
		QuestionRequestSecondAngle,
		QuestionCheckDeliveryToken,
		QuestionImproveFaceCapture,
		QuestionAwaitDoorbell,
	}, kinds)

	assert.InDelta(t, 0.0790, questions[0].ExpectedEntropyReduction, 1e-3)
	assert.InDelta(t, 0.0742, questions[1].ExpectedEntropyReduction, 1e-3)
	assert.InDelta(t, 0.0658, questions[2].ExpectedEntropyReduction, 1e-3)
	assert.InDelta(t, 0.0611, questions[3].ExpectedEntropyReduction, 1e-3)
}

func TestRankQuestionsNeverNegative(t *testing.T) {
	agg := newTestAggregator(t)
	a := agg.Assess(Evidence{{Factor: "behavior", Weight: 6}}, DefaultThresholds())

	questions := RankQuestions(a, agg, DefaultReasonerConfig())
	require.Len(t, questions, 4)
	for _, q := range questions {
		assert.Zero(t, q.ExpectedEntropyReduction, string(q.Kind))
	}
	// ties keep candidate order
	assert.Equal(t, QuestionAwaitDoorbell, questions[0].Kind)
}

func TestRankQuestionsUndefined(t *testing.T) {
	agg := newTestAggregator(t)
	a := agg.Assess(Evidence{{Factor: "behavior", Weight: math.Inf(1)}}, DefaultThresholds())
	assert.Nil(t, RankQuestions(a, agg, DefaultReasonerConfig()))
}

func TestEntropy(t *testing.T) {
	assert.Zero(t, entropy(0))
	assert.Zero(t, entropy(1))
	assert.InDelta(t, math.Ln2, entropy(0.5), 1e-12)
	assert.InDelta(t, entropy(0.2), entropy(0.8), 1e-12)
}
