package core

import (
	"context"
	"time"
)

// AssessmentRepository persists assessment records
type AssessmentRepository interface {
	// Save stores a record, replacing any record with the same ID
	Save(ctx context.Context, record *AssessmentRecord) error

	// Get returns a record by ID or ErrNotFound
	Get(ctx context.Context, id string) (*AssessmentRecord, error)

	// ListByHome returns the newest records for a home, newest first
	ListByHome(ctx context.Context, homeID string, limit int) ([]*AssessmentRecord, error)

	// Cleanup removes expired records
	Cleanup(ctx context.Context) error
}

// IncidentTracker groups events of the same tracked person into incidents
type IncidentTracker interface {
	// Track adds the event to its incident and returns the incident state
	// after the update
	Track(homeID, trackID, cameraID string, at time.Time, evidence Evidence) IncidentSummary
}
