package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbabilityOf(t *testing.T) {
	v, ok := ProbabilityOf(0.42).Value()
	assert.True(t, ok)
	assert.Equal(t, 0.42, v)

	v, _ = ProbabilityOf(1.7).Value()
	assert.Equal(t, 1.0, v)
	v, _ = ProbabilityOf(-0.1).Value()
	assert.Equal(t, 0.0, v)
	v, _ = ProbabilityOf(math.Inf(1)).Value()
	assert.Equal(t, 1.0, v)

	assert.True(t, ProbabilityOf(math.NaN()).IsUndefined())
	assert.True(t, Probability{}.IsUndefined(), "zero value is undefined")
}

func TestProbabilityString(t *testing.T) {
	assert.Equal(t, "19.3%", ProbabilityOf(0.1933).String())
	assert.Equal(t, "undefined", UndefinedProbability().String())
}

func TestProbabilityJSON(t *testing.T) {
	data, err := json.Marshal(ProbabilityOf(0.25))
	require.NoError(t, err)
	assert.Equal(t, "0.25", string(data))

	data, err = json.Marshal(UndefinedProbability())
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var p Probability
	require.NoError(t, json.Unmarshal([]byte("0.6"), &p))
	v, ok := p.Value()
	assert.True(t, ok)
	assert.Equal(t, 0.6, v)

	require.NoError(t, json.Unmarshal([]byte("null"), &p))
	assert.True(t, p.IsUndefined())

	assert.Error(t, json.Unmarshal([]byte(`"high"`), &p))
}
