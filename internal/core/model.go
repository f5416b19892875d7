package core

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an assessment record does not exist or has expired
var ErrNotFound = errors.New("assessment not found")

// SecurityEvent is one sensor observation with its pre-computed evidence
type SecurityEvent struct {
	EventID   string    `json:"event_id"`
	HomeID    string    `json:"home_id"`
	CameraID  string    `json:"camera_id,omitempty"`
	TrackID   string    `json:"track_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Evidence  Evidence  `json:"evidence"`
}

// IncidentSummary describes the incident an event was fused into
type IncidentSummary struct {
	ID         uint64    `json:"id"`
	TrackID    string    `json:"track_id"`
	EventCount int       `json:"event_count"`
	Cameras    []string  `json:"cameras"`
	StartedAt  time.Time `json:"started_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	// Fused is the per-factor evidence that was actually scored
	Fused Evidence `json:"fused"`
}

// AssessmentRecord is the persisted result of assessing one event
type AssessmentRecord struct {
	ID             string             `json:"id"`
	HomeID         string             `json:"home_id"`
	EventID        string             `json:"event_id,omitempty"`
	CameraID       string             `json:"camera_id,omitempty"`
	Assessment     ThreatAssessment   `json:"assessment"`
	Incident       *IncidentSummary   `json:"incident,omitempty"`
	Counterfactual *Counterfactual    `json:"counterfactual,omitempty"`
	Questions      []QuestionProposal `json:"questions,omitempty"`
	UnknownFactors []string           `json:"unknown_factors,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	ExpiresAt      time.Time          `json:"expires_at"`
}
