package domain

import "time"

// Assignment is the immutable mapping from a subject to its chosen variant.
// Exactly one assignment exists per (experiment, subject) pair.
type Assignment struct {
	ID           string
	ExperimentID string
	VariantID    string
	SubjectID    string
	// Context captures the subject attributes present at decision time.
	Context    map[string]string
	AssignedAt time.Time
}
