package ports

import (
	"context"

	"github.com/mikey/threat-alert-engine/internal/core"
)

// Assessor is the part of the alert service an intake needs
type Assessor interface {
	// Assess scores a single event
	Assess(ctx context.Context, event *core.SecurityEvent) (*core.AssessmentRecord, error)
}

// EventIntake receives security events from an upstream source and hands
// them to an Assessor
type EventIntake interface {
	// Start begins receiving events in the background
	Start() error

	// Stop shuts the intake down
	Stop() error
}
