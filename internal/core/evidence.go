package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// EvidenceTerm is one signed log-likelihood-ratio contribution. Positive
// weights favour "threat", negative weights favour "benign".
type EvidenceTerm struct {
	Factor string  `json:"factor"`
	Weight float64 `json:"weight"`
}

// Evidence is an ordered collection of terms. Factor names may repeat; repeated
// factors are summed by the aggregator.
type Evidence []EvidenceTerm

// EvidenceFromMap converts a factor map into Evidence sorted by factor name so
// that identical maps always produce identical evidence.
func EvidenceFromMap(m map[string]float64) Evidence {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	evidence := make(Evidence, 0, len(names))
	for _, name := range names {
		evidence = append(evidence, EvidenceTerm{Factor: name, Weight: m[name]})
	}
	return evidence
}

// Factors returns the factor names in input order
func (e Evidence) Factors() []string {
	names := make([]string, 0, len(e))
	for _, term := range e {
		names = append(names, term.Factor)
	}
	return names
}

// FactorWeight is a merged, finite contribution reported back for audit
type FactorWeight struct {
	Factor string  `json:"factor"`
	Weight float64 `json:"weight"`
}

// DiscardReason explains why a term was left out of the score
type DiscardReason string

const (
	// DiscardInvalidName marks terms whose factor name is empty or not UTF-8
	DiscardInvalidName DiscardReason = "invalid_name"
	// DiscardNonFinite marks NaN and infinite weights
	DiscardNonFinite DiscardReason = "non_finite"
)

// DiscardedTerm records a malformed term. Value is the textual weight since
// non-finite numbers cannot be encoded as JSON numbers.
type DiscardedTerm struct {
	Factor string        `json:"factor"`
	Value  string        `json:"value"`
	Reason DiscardReason `json:"reason"`
}

// UnmarshalJSON accepts the weight as a JSON number, a string ("NaN", "Inf",
// "-Infinity", "0.4") or null. Weights that cannot be read become NaN so the
// aggregator discards them instead of the whole event failing to decode.
func (t *EvidenceTerm) UnmarshalJSON(data []byte) error {
	var raw struct {
		Factor string          `json:"factor"`
		Weight json.RawMessage `json:"weight"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid evidence term: %w", err)
	}
	t.Factor = raw.Factor
	t.Weight = parseWeight(raw.Weight)
	return nil
}

// MarshalJSON writes non-finite weights as strings
func (t EvidenceTerm) MarshalJSON() ([]byte, error) {
	type term struct {
		Factor string `json:"factor"`
		Weight any    `json:"weight"`
	}
	if math.IsNaN(t.Weight) || math.IsInf(t.Weight, 0) {
		return json.Marshal(term{Factor: t.Factor, Weight: formatWeight(t.Weight)})
	}
	return json.Marshal(term{Factor: t.Factor, Weight: t.Weight})
}

// UnmarshalJSON accepts either a list of terms or an object of factor → weight
func (e *Evidence) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*e = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("invalid evidence object: %w", err)
		}
		names := make([]string, 0, len(obj))
		for name := range obj {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make(Evidence, 0, len(names))
		for _, name := range names {
			out = append(out, EvidenceTerm{Factor: name, Weight: parseWeight(obj[name])})
		}
		*e = out
		return nil
	default:
		var terms []EvidenceTerm
		if err := json.Unmarshal(trimmed, &terms); err != nil {
			return fmt.Errorf("invalid evidence list: %w", err)
		}
		*e = terms
		return nil
	}
}

func parseWeight(raw json.RawMessage) float64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return math.NaN()
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		return f
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil && !isRangeError(err) {
		return math.NaN()
	}
	return f
}

// isRangeError reports overflowing literals like "1e999"; ParseFloat returns
// ±Inf for those, which the aggregator discards like any non-finite weight.
func isRangeError(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'g', -1, 64)
}
