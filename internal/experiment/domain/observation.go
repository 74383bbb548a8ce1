package domain

import "time"

// Observation is one append-only metric event attributed to an assignment.
type Observation struct {
	ID           string
	AssignmentID string
	ExperimentID string
	VariantID    string
	Metric       string
	Value        float64
	RecordedAt   time.Time
}
