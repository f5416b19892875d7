package core

import (
	"fmt"
	"strings"
)

// AlertDecision is the discrete action taken for an event. Values are ordered
// by severity so they can be compared directly.
type AlertDecision int

const (
	// DecisionIgnore means no action is needed
	DecisionIgnore AlertDecision = iota
	// DecisionWait means the event is borderline and more evidence may change it
	DecisionWait
	// DecisionStandard is a normal alert
	DecisionStandard
	// DecisionElevated is an alert with increased response
	DecisionElevated
	// DecisionCritical requires immediate response
	DecisionCritical
)

var decisionNames = map[AlertDecision]string{
	DecisionIgnore:   "ignore",
	DecisionWait:     "wait",
	DecisionStandard: "standard",
	DecisionElevated: "elevated",
	DecisionCritical: "critical",
}

// AllDecisions lists every decision from most to least severe
var AllDecisions = []AlertDecision{
	DecisionCritical,
	DecisionElevated,
	DecisionStandard,
	DecisionWait,
	DecisionIgnore,
}

// String returns the lowercase name of the decision
func (d AlertDecision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("AlertDecision(%d)", int(d))
}

// Valid reports whether d is one of the five defined decisions
func (d AlertDecision) Valid() bool {
	return d >= DecisionIgnore && d <= DecisionCritical
}

// AtLeast reports whether d is as severe as other or more
func (d AlertDecision) AtLeast(other AlertDecision) bool {
	return d >= other
}

// IsAlert reports whether the decision results in a user-facing alert
func (d AlertDecision) IsAlert() bool {
	return d >= DecisionStandard
}

// ParseAlertDecision parses a decision name, case-insensitively
func ParseAlertDecision(s string) (AlertDecision, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for d, name := range decisionNames {
		if name == needle {
			return d, nil
		}
	}
	return DecisionIgnore, fmt.Errorf("unknown alert decision: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (d AlertDecision) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid alert decision: %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *AlertDecision) UnmarshalText(text []byte) error {
	parsed, err := ParseAlertDecision(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
