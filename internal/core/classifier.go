package core

// Classify maps a probability to a decision. Bands are checked from the most
// severe down and the first match wins. An undefined probability resolves to
// the configured fail-safe decision, which is never below Standard.
func Classify(p Probability, t Thresholds) AlertDecision {
	v, ok := p.Value()
	if !ok {
		if t.FailSafe < DecisionStandard || !t.FailSafe.Valid() {
			return DecisionStandard
		}
		return t.FailSafe
	}

	switch {
	case v >= t.Critical:
		return DecisionCritical
	case v >= t.Elevated:
		return DecisionElevated
	case v >= t.Alert:
		return DecisionStandard
	case v >= t.Wait:
		return DecisionWait
	default:
		return DecisionIgnore
	}
}
