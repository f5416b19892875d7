package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvidenceFromMapIsSorted(t *testing.T) {
	e := EvidenceFromMap(map[string]float64{"time_of_day": 0.4, "behavior": 1, "entry_point": -0.2})
	assert.Equal(t, []string{"behavior", "entry_point", "time_of_day"}, e.Factors())
}

func TestEvidenceUnmarshalList(t *testing.T) {
	var e Evidence
	require.NoError(t, json.Unmarshal([]byte(`[
		{"factor":"behavior","weight":1.5},
		{"factor":"behavior","weight":"-0.5"},
		{"factor":"presence","weight":"NaN"},
		{"factor":"entry_point","weight":"+Inf"},
		{"factor":"time_of_day","weight":null},
		{"factor":"identity_recognition","weight":"1e999"},
		{"factor":"token","weight":"lots"}
	]`), &e))

	require.Len(t, e, 7)
	assert.Equal(t, 1.5, e[0].Weight)
	assert.Equal(t, -0.5, e[1].Weight)
	assert.True(t, math.IsNaN(e[2].Weight))
	assert.True(t, math.IsInf(e[3].Weight, 1))
	assert.True(t, math.IsNaN(e[4].Weight))
	assert.True(t, math.IsInf(e[5].Weight, 1))
	assert.True(t, math.IsNaN(e[6].Weight))
}

func TestEvidenceUnmarshalObject(t *testing.T) {
	var e Evidence
	require.NoError(t, json.Unmarshal([]byte(`{"time_of_day":0.9,"behavior":"-Inf","entry_point":-1}`), &e))

	assert.Equal(t, []string{"behavior", "entry_point", "time_of_day"}, e.Factors())
	assert.True(t, math.IsInf(e[0].Weight, -1))
	assert.Equal(t, -1.0, e[1].Weight)

	require.NoError(t, json.Unmarshal([]byte(`null`), &e))
	assert.Nil(t, e)

	assert.Error(t, json.Unmarshal([]byte(`"behavior"`), &e))
}

func TestEvidenceMarshalNonFinite(t *testing.T) {
	data, err := json.Marshal(Evidence{
		{Factor: "behavior", Weight: math.NaN()},
		{Factor: "presence", Weight: math.Inf(-1)},
		{Factor: "entry_point", Weight: 0.25},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"factor":"behavior","weight":"NaN"},
		{"factor":"presence","weight":"-Inf"},
		{"factor":"entry_point","weight":0.25}
	]`, string(data))

	var back Evidence
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back[0].Weight))
	assert.True(t, math.IsInf(back[1].Weight, -1))
	assert.Equal(t, 0.25, back[2].Weight)
}
