package domain

import "time"

// Variant is one candidate treatment within an experiment.
type Variant struct {
	ID           string
	ExperimentID string
	Name         string
	IsControl    bool
	// Weight is the static split weight for fixed allocation.
	Weight float64
	// Payload is what the variant renders; opaque to the engine.
	Payload   []byte
	Stats     Stats
	CreatedAt time.Time
	UpdatedAt time.Time
}
